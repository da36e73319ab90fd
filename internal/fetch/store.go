package fetch

import (
	apperrors "weeklypanel/internal/errors"
	"weeklypanel/internal/exporter"
	"weeklypanel/pkg/contracts/domain"
)

// WriteDaily stores a downloaded series at path in the daily schema. An
// empty series is refused and nothing is written.
func WriteDaily(w *exporter.CSVWriter, path string, s *domain.Series) error {
	if s == nil || s.Len() == 0 {
		return apperrors.NewEmptyInput("refusing to write empty series to %s", path)
	}
	return w.WriteSeries(path, s)
}
