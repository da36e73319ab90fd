// Package validation checks the files a configuration points at before any
// stage runs.
package validation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"weeklypanel/internal/config"
	apperrors "weeklypanel/internal/errors"
	"weeklypanel/internal/loader"
)

// FileValidator checks input files and output directories
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// Check verifies every configured input file and the output directory.
// All problems are collected and returned joined.
func (v *FileValidator) Check(cfg *config.Config) error {
	var errs []error
	if err := v.ValidateInputDirectory(cfg.Paths.InputDir); err != nil {
		return err
	}
	for _, def := range cfg.Series {
		schema := loader.SchemaForClass(def.Class)
		if def.Schema != "" {
			s, err := loader.SchemaByName(def.Schema)
			if err != nil {
				errs = append(errs, apperrors.NewConfigError(def.Name+": "+err.Error(), nil))
				continue
			}
			schema = s
		}
		if err := v.ValidateSeriesFile(cfg.InputPath(def), schema); err != nil {
			errs = append(errs, err)
		}
	}
	if err := v.ValidateOutputDirectory(cfg.Paths.OutputDir); err != nil {
		errs = append(errs, err)
	}

	v.logger.Info("Preflight finished",
		slog.Int("series", len(cfg.Series)),
		slog.Int("problems", len(errs)))
	return errors.Join(errs...)
}

// ValidateInputDirectory checks that dir exists and is a directory
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return apperrors.NewFileNotFound(dir, err)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat directory %s", dir), err)
	}
	if !info.IsDir() {
		return apperrors.NewValidationError("%s is not a directory", dir)
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)
	return nil
}

// ValidateSeriesFile checks that path is a readable .csv file whose header
// matches schema. Rows are not read.
func (v *FileValidator) ValidateSeriesFile(path string, schema loader.Schema) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return apperrors.NewValidationError("%s is not a CSV file (extension: %s)", path, ext)
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return apperrors.NewFileNotFound(path, err)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	defer file.Close()

	header, err := csv.NewReader(file).Read()
	if err == io.EOF {
		return apperrors.NewEmptyInput("%s has no header", path)
	}
	if err != nil {
		return apperrors.NewMalformedSeries("%s: %v", path, err)
	}

	want := schema.Header()
	if len(header) != len(want) {
		return apperrors.NewMalformedSeries("%s: header has %d columns, want %s", path, len(header), strings.Join(want, ","))
	}
	for i := range want {
		if strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")) != want[i] {
			return apperrors.NewMalformedSeries("%s: column %d is %q, want %q", path, i+1, header[i], want[i])
		}
	}

	v.logger.Debug("Series file validated",
		slog.String("file", path),
		slog.String("schema", schema.Name))
	return nil
}
