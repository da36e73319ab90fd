// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides the fixtures every package test builds
// on: business-day calendars, daily and rate CSV writers, and a buffered
// slog handler for asserting on log output.
//
//	logger, logs := testutil.NewTestLogger(t)
//	days := testutil.BusinessDays(start, 100)
//	testutil.WriteFile(t, dir, "Aker_BP.csv", testutil.DailyCSV(days, closes))
//	...
//	assert.True(t, logs.ContainsMessage("resample_done"))
package shared
