package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "weeklypanel/internal/errors"
)

// EnvPrefix namespaces environment overrides (PANEL_PATHS_OUTPUT_DIR, ...)
const EnvPrefix = "PANEL"

// Config represents the complete application configuration
type Config struct {
	Paths      PathsConfig        `yaml:"paths" envconfig:"PATHS"`
	Logging    LoggingConfig      `yaml:"logging" envconfig:"LOGGING"`
	Telemetry  TelemetryConfig    `yaml:"telemetry" envconfig:"TELEMETRY"`
	Fetch      FetchConfig        `yaml:"fetch" envconfig:"FETCH"`
	Server     ServerConfig       `yaml:"server" envconfig:"SERVER"`
	Series     []SeriesDefinition `yaml:"series" ignored:"true" validate:"required,min=1,unique=Name,dive"`
	Panel      PanelConfig        `yaml:"panel" ignored:"true"`
	Regression *RegressionConfig  `yaml:"regression" ignored:"true"`
}

// PathsConfig contains file system paths configuration. Relative paths
// are resolved against the directory of the config file.
type PathsConfig struct {
	InputDir  string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	PanelFile string `yaml:"panel_file" envconfig:"PANEL_FILE" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig controls tracing and the metrics textfile
type TelemetryConfig struct {
	ServiceName     string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Tracing         bool   `yaml:"tracing" envconfig:"TRACING"`
	TraceFile       string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// FetchConfig configures the daily bar download
type FetchConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	Start             string        `yaml:"start" envconfig:"START" validate:"omitempty,datetime=2006-01-02"`
	End               string        `yaml:"end" envconfig:"END" validate:"omitempty,datetime=2006-01-02"`
	Years             int           `yaml:"years" envconfig:"YEARS" validate:"min=1"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Retries           int           `yaml:"retries" envconfig:"RETRIES" validate:"min=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// Window returns the download range. A missing end means today; a missing
// start means Years before the end.
func (f FetchConfig) Window(now time.Time) (time.Time, time.Time, error) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if f.End != "" {
		t, err := time.Parse("2006-01-02", f.End)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.NewConfigError("invalid fetch.end", err)
		}
		end = t
	}
	start := end.AddDate(-f.Years, 0, 0)
	if f.Start != "" {
		t, err := time.Parse("2006-01-02", f.Start)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.NewConfigError("invalid fetch.start", err)
		}
		start = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, apperrors.NewConfigError(
			fmt.Sprintf("fetch window %s..%s is empty", start.Format("2006-01-02"), end.Format("2006-01-02")), nil)
	}
	return start, end, nil
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// Load reads the configuration: defaults, then the YAML file at path (when
// given), then PANEL_* environment variables. A .env file beside the config
// file is loaded into the environment first without overriding set vars.
func Load(path string) (*Config, error) {
	baseDir := "."
	if path != "" {
		baseDir = filepath.Dir(path)
	}
	if err := godotenv.Load(filepath.Join(baseDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewConfigError("failed to load .env", err)
	}

	cfg := Default()
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.resolvePaths(baseDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Unknown keys are rejected.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.NewFileNotFound(path, err)
		}
		return apperrors.NewConfigError("failed to read config file", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return nil
}

// resolvePaths anchors relative paths at baseDir
func (c *Config) resolvePaths(baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Paths.InputDir = resolve(c.Paths.InputDir)
	c.Paths.OutputDir = resolve(c.Paths.OutputDir)
	c.Logging.FilePath = resolve(c.Logging.FilePath)
	c.Telemetry.TraceFile = resolve(c.Telemetry.TraceFile)
	c.Telemetry.MetricsTextfile = resolve(c.Telemetry.MetricsTextfile)
}

var validate = validator.New()

// Validate checks field rules and references between sections
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return apperrors.NewConfigError("config validation failed: "+strings.Join(msgs, "; "), nil)
		}
		return apperrors.NewConfigError("config validation failed", err)
	}
	return c.validateReferences()
}

func (c *Config) validateReferences() error {
	fail := func(format string, args ...interface{}) error {
		return apperrors.NewConfigError(fmt.Sprintf(format, args...), nil)
	}

	for _, j := range c.Panel.inputs() {
		if _, ok := c.Definition(j.Series); !ok {
			return fail("panel references undefined series %q", j.Series)
		}
	}

	columns := map[string]bool{}
	for _, name := range c.Panel.OutputColumns() {
		columns[name] = true
	}
	for _, d := range c.Panel.Diff {
		if !columns[d.Column+"_diff"] {
			return fail("panel.diff references unknown column %q", d.Column)
		}
	}

	r := c.Regression
	if r == nil {
		return nil
	}
	for _, name := range append([]string{r.Dependent}, r.Regressors...) {
		if !columns[name] {
			return fail("regression references column %q not in the panel", name)
		}
	}
	for _, name := range r.Stationarity {
		if !columns[name] {
			return fail("regression.stationarity references column %q not in the panel", name)
		}
	}
	if e := r.Endogeneity; e != nil {
		found := false
		for _, name := range r.Regressors {
			found = found || name == e.Variable
			if name == e.Instrument {
				return fail("instrument %q is also a regressor", e.Instrument)
			}
		}
		if !found {
			return fail("endogeneity variable %q is not a regressor", e.Variable)
		}
		if !columns[e.Instrument] {
			return fail("instrument %q not in the panel", e.Instrument)
		}
	}
	return nil
}

// Definition looks up a series by name
func (c *Config) Definition(name string) (SeriesDefinition, bool) {
	for _, d := range c.Series {
		if d.Name == name {
			return d, true
		}
	}
	return SeriesDefinition{}, false
}

// InputPath returns where a series' native file lives
func (c *Config) InputPath(d SeriesDefinition) string {
	if filepath.IsAbs(d.File) {
		return d.File
	}
	return filepath.Join(c.Paths.InputDir, d.File)
}

// WeeklyFile names the weekly output of a series
func WeeklyFile(name string) string {
	return name + "_weekly.csv"
}

// WeeklyPath returns where a series' weekly file is written
func (c *Config) WeeklyPath(name string) string {
	return filepath.Join(c.Paths.OutputDir, WeeklyFile(name))
}

// PanelPath returns where the panel is written
func (c *Config) PanelPath() string {
	if filepath.IsAbs(c.Paths.PanelFile) {
		return c.Paths.PanelFile
	}
	return filepath.Join(c.Paths.OutputDir, c.Paths.PanelFile)
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			InputDir:  "data",
			OutputDir: "output",
			PanelFile: "panel.csv",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/panel.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "weeklypanel",
		},
		Fetch: FetchConfig{
			BaseURL:           "https://query1.finance.yahoo.com",
			Years:             15,
			Timeout:           30 * time.Second,
			Retries:           3,
			RequestsPerSecond: 2,
			UserAgent:         "Mozilla/5.0 (compatible; weeklypanel/1.0)",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}
