// Package pipeline runs the weekly panel stages: load, resample, write,
// align and regress. Stages stop at the first error; resampling fans out
// one goroutine per series.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"weeklypanel/internal/config"
	apperrors "weeklypanel/internal/errors"
	"weeklypanel/internal/exporter"
	"weeklypanel/internal/infrastructure"
	"weeklypanel/internal/loader"
	"weeklypanel/internal/panel"
	"weeklypanel/internal/regression"
	"weeklypanel/internal/resample"
	"weeklypanel/pkg/contracts/domain"
)

// Stage names used in logs, spans and metrics
const (
	StageLoad     = "load"
	StageResample = "resample"
	StageWrite    = "write"
	StageAlign    = "align"
	StageRegress  = "regress"
	StageFetch    = "fetch"
)

// Pipeline executes the configured stages
type Pipeline struct {
	cfg    *config.Config
	tel    *infrastructure.Telemetry
	writer *exporter.CSVWriter
	logger *slog.Logger
}

// New creates a pipeline. tel must be initialized.
func New(cfg *config.Config, tel *infrastructure.Telemetry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Pipeline{
		cfg:    cfg,
		tel:    tel,
		// config paths are already resolved
		writer: exporter.NewCSVWriter(""),
		logger: infrastructure.WithComponent(logger, "pipeline"),
	}
}

// Result holds everything one run produced
type Result struct {
	RunID      string
	Native     []*domain.Series
	Weekly     []*domain.WeeklySeries
	Panel      *domain.Panel
	Regression *regression.Result
	Finished   time.Time
}

// Series returns the weekly series called name
func (r *Result) Series(name string) (*domain.WeeklySeries, bool) {
	for _, ws := range r.Weekly {
		if ws.Name == name {
			return ws, true
		}
	}
	return nil, false
}

// stage wraps fn with a span, duration metric and start/finish logs
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, end := p.tel.StartStage(ctx, name)
	started := time.Now()
	p.logger.DebugContext(ctx, "stage_started", slog.String("stage", name))

	err := fn(ctx)
	end(err)
	if err != nil {
		p.logger.ErrorContext(ctx, "stage_failed",
			slog.String("stage", name),
			slog.String("error", err.Error()))
		return err
	}
	p.logger.InfoContext(ctx, "stage_completed",
		slog.String("stage", name),
		slog.Duration("duration", time.Since(started)))
	return nil
}

// Run executes every stage and returns the results. Nothing past the
// failing stage is written.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	res := &Result{RunID: infrastructure.RunID(ctx)}

	p.logger.InfoContext(ctx, "pipeline_started", slog.Int("series", len(p.cfg.Series)))

	var err error
	if res.Native, err = p.LoadAll(ctx); err != nil {
		return nil, err
	}
	if res.Weekly, err = p.ResampleAll(ctx, res.Native); err != nil {
		return nil, err
	}
	if err = p.WriteWeekly(ctx, res.Weekly); err != nil {
		return nil, err
	}
	if res.Panel, err = p.Align(ctx, res.Native, res.Weekly); err != nil {
		return nil, err
	}
	if err = p.WritePanel(ctx, res.Panel); err != nil {
		return nil, err
	}
	if p.cfg.Regression != nil {
		if res.Regression, err = p.Regress(ctx, res.Panel); err != nil {
			return nil, err
		}
	}

	res.Finished = time.Now()
	p.logger.InfoContext(ctx, "pipeline_completed",
		slog.Int("weeks", res.Panel.Len()),
		slog.Int("columns", len(res.Panel.Columns)))
	return res, nil
}

// Resample runs load, resample and write, stopping before alignment
func (p *Pipeline) Resample(ctx context.Context) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	res := &Result{RunID: infrastructure.RunID(ctx)}

	var err error
	if res.Native, err = p.LoadAll(ctx); err != nil {
		return nil, err
	}
	if res.Weekly, err = p.ResampleAll(ctx, res.Native); err != nil {
		return nil, err
	}
	if err = p.WriteWeekly(ctx, res.Weekly); err != nil {
		return nil, err
	}
	res.Finished = time.Now()
	return res, nil
}

// LoadAll reads every configured series in definition order
func (p *Pipeline) LoadAll(ctx context.Context) ([]*domain.Series, error) {
	out := make([]*domain.Series, len(p.cfg.Series))
	err := p.stage(ctx, StageLoad, func(ctx context.Context) error {
		for i, def := range p.cfg.Series {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := p.load(def)
			if err != nil {
				return err
			}
			s.Name = def.Name
			out[i] = s
			p.tel.AddRows(ctx, StageLoad, def.Name, s.Len())
			p.logger.DebugContext(ctx, "series_loaded",
				slog.String("series", def.Name),
				slog.Int("rows", s.Len()))
		}
		return nil
	})
	return out, err
}

func (p *Pipeline) load(def config.SeriesDefinition) (*domain.Series, error) {
	schema := loader.SchemaForClass(def.Class)
	if def.Schema != "" {
		var err error
		if schema, err = loader.SchemaByName(def.Schema); err != nil {
			return nil, apperrors.NewConfigError(err.Error(), nil)
		}
	}
	return loader.Load(p.cfg.InputPath(def), schema)
}

// ResampleAll converts every native series to weekly grain concurrently.
// Each goroutine owns one output slot; the first failure cancels the rest.
func (p *Pipeline) ResampleAll(ctx context.Context, natives []*domain.Series) ([]*domain.WeeklySeries, error) {
	if len(natives) != len(p.cfg.Series) {
		return nil, apperrors.NewValidationError("have %d series for %d definitions", len(natives), len(p.cfg.Series))
	}

	out := make([]*domain.WeeklySeries, len(natives))
	err := p.stage(ctx, StageResample, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for i := range natives {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				def := p.cfg.Series[i]
				sctx, end := p.tel.StartStage(gctx, "resample_series", attribute.String("series", def.Name))
				ws, err := resample.ResampleWithOptions(natives[i], def.Class, resample.Options{Percent: def.Percent})
				end(err)
				if err != nil {
					return err
				}
				out[i] = ws
				p.tel.AddRows(sctx, StageResample, def.Name, ws.Len())
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteWeekly stores each weekly series as <name>_weekly.csv
func (p *Pipeline) WriteWeekly(ctx context.Context, weekly []*domain.WeeklySeries) error {
	return p.stage(ctx, StageWrite, func(ctx context.Context) error {
		for _, ws := range weekly {
			if err := p.writer.WriteWeekly(p.cfg.WeeklyPath(ws.Name), ws); err != nil {
				return err
			}
		}
		return nil
	})
}

// Align joins the weekly series into the configured panel. Deferred joins
// use the native series instead of its weekly form.
func (p *Pipeline) Align(ctx context.Context, natives []*domain.Series, weekly []*domain.WeeklySeries) (*domain.Panel, error) {
	var out *domain.Panel
	err := p.stage(ctx, StageAlign, func(ctx context.Context) error {
		spec, err := p.spec(natives, weekly)
		if err != nil {
			return err
		}
		if out, err = panel.Align(spec); err != nil {
			return err
		}
		p.tel.Metrics.PanelRows.Record(ctx, int64(out.Len()))
		p.tel.AddRows(ctx, StageAlign, "panel", out.Len())
		return nil
	})
	return out, err
}

// WritePanel stores the aligned panel
func (p *Pipeline) WritePanel(ctx context.Context, pn *domain.Panel) error {
	return p.stage(ctx, "write_panel", func(ctx context.Context) error {
		return p.writer.WritePanel(p.cfg.PanelPath(), pn)
	})
}

func (p *Pipeline) spec(natives []*domain.Series, weekly []*domain.WeeklySeries) (panel.Spec, error) {
	input := func(jc config.JoinConfig) (panel.Input, error) {
		i := p.index(jc.Series)
		if i < 0 || i >= len(weekly) {
			return panel.Input{}, apperrors.NewConfigError("panel references undefined series "+jc.Series, nil)
		}
		in := panel.Input{Series: weekly[i], Mode: panel.JoinMode(jc.Mode)}
		if jc.Deferred {
			if i >= len(natives) || natives[i] == nil {
				return panel.Input{}, apperrors.NewValidationError("deferred join %q needs its native series", jc.Series)
			}
			ws, err := resample.Deferred(natives[i], p.cfg.Series[i].Class)
			if err != nil {
				return panel.Input{}, err
			}
			in.Series = ws
			in.Mode = panel.JoinAsOf
		}
		for _, c := range jc.Columns {
			in.Columns = append(in.Columns, panel.Column{Source: c.Source, As: c.As})
		}
		return in, nil
	}

	var spec panel.Spec
	var err error
	if spec.Base, err = input(p.cfg.Panel.Base); err != nil {
		return spec, err
	}
	for _, jc := range p.cfg.Panel.Joins {
		in, err := input(jc)
		if err != nil {
			return spec, err
		}
		spec.Joins = append(spec.Joins, in)
	}
	for _, d := range p.cfg.Panel.Diff {
		spec.Diffs = append(spec.Diffs, panel.Difference{Column: d.Column, DropLevel: !d.Keep()})
	}
	return spec, nil
}

func (p *Pipeline) index(name string) int {
	for i, d := range p.cfg.Series {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// Regress fits the configured regression on pn
func (p *Pipeline) Regress(ctx context.Context, pn *domain.Panel) (*regression.Result, error) {
	rc := p.cfg.Regression
	if rc == nil {
		return nil, apperrors.NewConfigError("no regression configured", nil)
	}

	var out *regression.Result
	err := p.stage(ctx, StageRegress, func(ctx context.Context) error {
		opts := regression.Options{
			Stationarity: rc.Stationarity,
			MaxLag:       rc.ADFMaxLag(),
		}
		if e := rc.Endogeneity; e != nil {
			opts.Endogenous, opts.Instrument = e.Variable, e.Instrument
		}
		res, err := regression.Fit(pn, rc.Dependent, rc.Regressors, opts)
		if err != nil {
			return err
		}
		out = res
		p.logger.InfoContext(ctx, "regression_fitted",
			slog.String("dependent", rc.Dependent),
			slog.Int("observations", res.Model.N),
			slog.Float64("r2", res.Model.R2))
		return nil
	})
	return out, err
}

// AlignFromFiles rebuilds the panel from previously written weekly files.
// Deferred joins reload their native input.
func (p *Pipeline) AlignFromFiles(ctx context.Context) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	res := &Result{
		RunID:  infrastructure.RunID(ctx),
		Native: make([]*domain.Series, len(p.cfg.Series)),
		Weekly: make([]*domain.WeeklySeries, len(p.cfg.Series)),
	}

	deferred := map[string]bool{}
	for _, jc := range append([]config.JoinConfig{p.cfg.Panel.Base}, p.cfg.Panel.Joins...) {
		deferred[jc.Series] = deferred[jc.Series] || jc.Deferred
	}

	err := p.stage(ctx, StageLoad, func(ctx context.Context) error {
		for i, def := range p.cfg.Series {
			ws, err := loader.LoadWeekly(p.cfg.WeeklyPath(def.Name), def.Name, def.Class)
			if err != nil {
				return err
			}
			res.Weekly[i] = ws
			if deferred[def.Name] {
				s, err := p.load(def)
				if err != nil {
					return err
				}
				s.Name = def.Name
				res.Native[i] = s
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Panel, err = p.Align(ctx, res.Native, res.Weekly); err != nil {
		return nil, err
	}
	if err := p.WritePanel(ctx, res.Panel); err != nil {
		return nil, err
	}
	res.Finished = time.Now()
	return res, nil
}

// RegressFromFile fits the regression on the stored panel file
func (p *Pipeline) RegressFromFile(ctx context.Context) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	res := &Result{RunID: infrastructure.RunID(ctx)}

	err := p.stage(ctx, StageLoad, func(ctx context.Context) error {
		var err error
		res.Panel, err = loader.LoadPanel(p.cfg.PanelPath())
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Regression, err = p.Regress(ctx, res.Panel); err != nil {
		return nil, err
	}
	res.Finished = time.Now()
	return res, nil
}
