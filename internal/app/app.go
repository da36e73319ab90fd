package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"weeklypanel/internal/config"
	"weeklypanel/internal/fetch"
	"weeklypanel/internal/infrastructure"
	"weeklypanel/internal/pipeline"
	"weeklypanel/internal/report"
	transport "weeklypanel/internal/transport/http"
	"weeklypanel/internal/validation"
)

// Application holds the wired components of one process
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Pipeline  *pipeline.Pipeline

	out io.Writer
	now func() time.Time
}

// NewApplication loads configPath and initializes logging, telemetry and
// the pipeline. Reports are written to out.
func NewApplication(configPath string, out io.Writer) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tel, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if out == nil {
		out = os.Stdout
	}
	logger.Debug("Application initialized",
		slog.String("config", configPath),
		slog.Int("series", len(cfg.Series)),
		slog.String("output_dir", cfg.Paths.OutputDir))

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Telemetry: tel,
		Pipeline:  pipeline.New(cfg, tel, logger),
		out:       out,
		now:       time.Now,
	}, nil
}

// Check validates the configured input files and the output directory
// without running any stage.
func (a *Application) Check(_ context.Context) error {
	if err := validation.NewFileValidator(a.Logger).Check(a.Config); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d series ready in %s\n", len(a.Config.Series), a.Config.Paths.InputDir)
	return nil
}

// Fetch downloads the daily bars of every series with a symbol
func (a *Application) Fetch(ctx context.Context) error {
	client := fetch.NewClient(a.Config.Fetch, a.Logger, fetch.WithObserver(pipeline.FetchObserver(a.Telemetry)))
	return a.Pipeline.Fetch(ctx, client, a.now())
}

// Resample writes the weekly files and lists them
func (a *Application) Resample(ctx context.Context) error {
	res, err := a.Pipeline.Resample(ctx)
	if err != nil {
		return err
	}
	return report.Series(a.out, res.Weekly)
}

// Align rebuilds the panel from the weekly files and describes it
func (a *Application) Align(ctx context.Context) error {
	res, err := a.Pipeline.AlignFromFiles(ctx)
	if err != nil {
		return err
	}
	return report.Panel(a.out, res.Panel)
}

// Regress fits the configured regression on the stored panel
func (a *Application) Regress(ctx context.Context) error {
	res, err := a.Pipeline.RegressFromFile(ctx)
	if err != nil {
		return err
	}
	return report.Regression(a.out, res.Regression)
}

// Run executes the whole pipeline and prints every report
func (a *Application) Run(ctx context.Context) error {
	res, err := a.Pipeline.Run(ctx)
	if err != nil {
		return err
	}
	return a.print(res)
}

func (a *Application) print(res *pipeline.Result) error {
	if err := report.Series(a.out, res.Weekly); err != nil {
		return err
	}
	if err := report.Panel(a.out, res.Panel); err != nil {
		return err
	}
	if res.Regression != nil {
		return report.Regression(a.out, res.Regression)
	}
	return nil
}

// Serve runs the pipeline once, then serves its result until ctx is done
func (a *Application) Serve(ctx context.Context) error {
	res, err := a.Pipeline.Run(ctx)
	if err != nil {
		return err
	}
	snapshot := transport.NewSnapshot()
	snapshot.Store(res)

	router := transport.NewRouter(snapshot, a.Telemetry, a.Logger)
	return transport.NewServer(a.Config.Server, router, a.Logger).Run(ctx)
}

// Stop flushes telemetry and closes the log file
func (a *Application) Stop(ctx context.Context) error {
	var errs []error
	if err := a.Telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}
