package loader

import (
	"fmt"

	"weeklypanel/pkg/contracts/domain"
)

// DateColumn heads every file the loader reads
const DateColumn = "Date"

// Schema fixes the value columns that must follow Date in a file header
type Schema struct {
	Name    string
	Columns []string
}

var (
	// DailySchema is the daily financial layout written by the fetcher
	DailySchema = Schema{
		Name:    "daily",
		Columns: []string{"Close", "High", "Low", "Open", "Volume", "Log_Returns"},
	}
	// RateSchema is a single rate column, daily or monthly
	RateSchema = Schema{
		Name:    "rate",
		Columns: []string{"Rate"},
	}
)

// Header returns the full expected header row
func (s Schema) Header() []string {
	return append([]string{DateColumn}, s.Columns...)
}

// SchemaByName resolves "daily" or "rate"
func SchemaByName(name string) (Schema, error) {
	switch name {
	case DailySchema.Name:
		return DailySchema, nil
	case RateSchema.Name:
		return RateSchema, nil
	}
	return Schema{}, fmt.Errorf("unknown schema %q", name)
}

// SchemaForClass returns the default schema for a frequency class. Daily
// aggregates are price files; last-value and monthly series carry a rate.
func SchemaForClass(class domain.FrequencyClass) Schema {
	if class == domain.DailyAggregate {
		return DailySchema
	}
	return RateSchema
}
