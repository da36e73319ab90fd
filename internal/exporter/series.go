package exporter

import (
	"weeklypanel/pkg/contracts/domain"
)

// WeeklyRecords lays out a weekly series as header and rows
func WeeklyRecords(ws *domain.WeeklySeries) ([]string, [][]string) {
	headers := append([]string{"Date"}, ws.Columns...)
	records := make([][]string, len(ws.Rows))
	for i, row := range ws.Rows {
		records[i] = append([]string{row.Key.String()}, formatValues(row.Values)...)
	}
	return headers, records
}

// PanelRecords lays out a panel as header and rows
func PanelRecords(p *domain.Panel) ([]string, [][]string) {
	headers := append([]string{"Date"}, p.Columns...)
	records := make([][]string, len(p.Rows))
	for i, row := range p.Rows {
		records[i] = append([]string{row.Key.String()}, formatValues(row.Values)...)
	}
	return headers, records
}

// SeriesRecords lays out a native series with calendar dates
func SeriesRecords(s *domain.Series) ([]string, [][]string) {
	headers := append([]string{"Date"}, s.Columns...)
	records := make([][]string, len(s.Observations))
	for i, obs := range s.Observations {
		records[i] = append([]string{obs.Date.Format(DateLayout)}, formatValues(obs.Values)...)
	}
	return headers, records
}

// WriteWeekly writes a weekly series
func (w *CSVWriter) WriteWeekly(filePath string, ws *domain.WeeklySeries) error {
	headers, records := WeeklyRecords(ws)
	return w.WriteCSV(filePath, WriteOptions{Headers: headers, Records: records})
}

// WritePanel writes the aligned panel
func (w *CSVWriter) WritePanel(filePath string, p *domain.Panel) error {
	headers, records := PanelRecords(p)
	return w.WriteCSV(filePath, WriteOptions{Headers: headers, Records: records})
}

// WriteSeries writes a native series in the loader's layout
func (w *CSVWriter) WriteSeries(filePath string, s *domain.Series) error {
	headers, records := SeriesRecords(s)
	return w.WriteCSV(filePath, WriteOptions{Headers: headers, Records: records})
}
