package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"weeklypanel/internal/fetch"
	"weeklypanel/internal/infrastructure"
	"weeklypanel/pkg/contracts/domain"
)

// Downloader fetches one daily series
type Downloader interface {
	Daily(ctx context.Context, name, symbol string, start, end time.Time) (*domain.Series, error)
}

// Fetch downloads every series that has a symbol into the input directory.
// A failed symbol is logged and skipped; the failures are returned joined
// once all symbols were tried.
func (p *Pipeline) Fetch(ctx context.Context, d Downloader, now time.Time) error {
	ctx = infrastructure.EnsureRunID(ctx)
	start, end, err := p.cfg.Fetch.Window(now)
	if err != nil {
		return err
	}

	return p.stage(ctx, StageFetch, func(ctx context.Context) error {
		var errs []error
		fetched := 0
		for _, def := range p.cfg.Series {
			if def.Symbol == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			s, err := d.Daily(ctx, def.Name, def.Symbol, start, end)
			if err == nil {
				err = fetch.WriteDaily(p.writer, p.cfg.InputPath(def), s)
			}
			if err != nil {
				p.logger.WarnContext(ctx, "fetch_failed",
					slog.String("series", def.Name),
					slog.String("symbol", def.Symbol),
					slog.String("error", err.Error()))
				errs = append(errs, fmt.Errorf("%s: %w", def.Name, err))
				continue
			}
			fetched++
			p.tel.AddRows(ctx, StageFetch, def.Name, s.Len())
		}

		p.logger.InfoContext(ctx, "fetch_summary",
			slog.Int("fetched", fetched),
			slog.Int("failed", len(errs)),
			slog.String("start", start.Format("2006-01-02")),
			slog.String("end", end.Format("2006-01-02")))
		return errors.Join(errs...)
	})
}

// FetchObserver counts downloads by symbol and outcome
func FetchObserver(tel *infrastructure.Telemetry) fetch.Observer {
	return func(ctx context.Context, symbol string, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		tel.Metrics.FetchRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("outcome", outcome),
		))
	}
}
