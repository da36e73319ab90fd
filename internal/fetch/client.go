// Package fetch downloads daily bars from a Yahoo-compatible chart API and
// stores them in the layout the loader reads.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"weeklypanel/internal/config"
	apperrors "weeklypanel/internal/errors"
	"weeklypanel/pkg/contracts/domain"
)

const chartPath = "/v8/finance/chart/{symbol}"

// Observer is told the outcome of every download
type Observer func(ctx context.Context, symbol string, err error)

// Client downloads daily chart data at a bounded request rate
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
	observer Observer
}

// Option configures a Client
type Option func(*Client)

// WithObserver reports each download's outcome
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a chart client from the fetch configuration
func NewClient(cfg config.FetchConfig, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	c := &Client{
		http:    rc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger.With("component", "fetch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Daily downloads daily bars for symbol in [start, end) and returns them as
// a series called name.
func (c *Client) Daily(ctx context.Context, name, symbol string, start, end time.Time) (s *domain.Series, err error) {
	defer func() {
		if c.observer != nil {
			c.observer(ctx, symbol, err)
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewNetworkError("rate limiter", err)
	}

	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"period1":  strconv.FormatInt(start.Unix(), 10),
			"period2":  strconv.FormatInt(end.Unix(), 10),
			"interval": "1d",
			"events":   "history",
		}).
		SetResult(&chartResponse{}).
		SetError(&chartResponse{}).
		Get(chartPath)
	if err != nil {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("download %s", symbol), err)
	}

	if resp.IsError() {
		msg := resp.Status()
		if body, ok := resp.Error().(*chartResponse); ok && body.Chart.Error != nil {
			msg = body.Chart.Error.Description
		}
		if resp.StatusCode() == http.StatusNotFound {
			return nil, apperrors.NewEmptyInput("no data for %s (%s): %s", name, symbol, msg)
		}
		return nil, apperrors.NewNetworkError(fmt.Sprintf("download %s: %s", symbol, msg), nil).
			WithContext("status", resp.StatusCode())
	}

	body, ok := resp.Result().(*chartResponse)
	if !ok || len(body.Chart.Result) == 0 {
		return nil, apperrors.NewEmptyInput("no data for %s (%s)", name, symbol)
	}

	s, err = toSeries(name, body.Chart.Result[0])
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Downloaded daily bars",
		slog.String("series", name),
		slog.String("symbol", symbol),
		slog.Int("rows", s.Len()),
		slog.Duration("duration", time.Since(started)))
	return s, nil
}
