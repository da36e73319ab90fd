// Package exporter writes series and panels as CSV files.
//
// CSVWriter: core CSV writing with headers, optional UTF-8 BOM, and
// write-then-rename so a failed run never leaves a truncated file behind.
//
// Weekly and panel files share one layout: a Date column holding the ISO
// week as YYYY-WW, then one column per value. Native series keep their
// calendar dates. Floats use the shortest representation that round-trips;
// NaN is written as an empty cell.
//
// Example usage:
//
//	w := exporter.NewCSVWriter("output")
//	err := w.WriteWeekly("Brent_Crude_weekly.csv", weekly)
//	err = w.WritePanel("panel.csv", panel)
package exporter
