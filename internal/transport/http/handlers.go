package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "weeklypanel/internal/errors"
	"weeklypanel/internal/pipeline"
	"weeklypanel/pkg/contracts/domain"
)

// ResultHandler serves the held pipeline result
type ResultHandler struct {
	source       ResultSource
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewResultHandler creates a handler over source
func NewResultHandler(source ResultSource, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *ResultHandler {
	return &ResultHandler{
		source:       source,
		logger:       logger.With(slog.String("component", "result_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api routes
func (h *ResultHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/series", h.ListSeries)
	r.Get("/series/{name}", h.GetSeries)
	r.Get("/panel", h.GetPanel)
	r.Get("/regression", h.GetRegression)
	return r
}

func (h *ResultHandler) latest(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	res, ok := h.source.Latest()
	if !ok {
		h.errorHandler.HandleError(w, r, apperrors.NewEmptyInput("no completed run yet"))
		return nil, false
	}
	return res, true
}

// ListSeries handles GET /api/series
func (h *ResultHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w, r)
	if !ok {
		return
	}

	out := make([]SeriesSummary, 0, len(res.Weekly))
	for _, ws := range res.Weekly {
		out = append(out, summarize(ws))
	}
	render.JSON(w, r, map[string]interface{}{
		"run_id": res.RunID,
		"data":   out,
		"count":  len(out),
	})
}

// GetSeries handles GET /api/series/{name}
func (h *ResultHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	res, ok := h.latest(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	ws, found := res.Series(name)
	if !found {
		h.errorHandler.HandleError(w, r, apperrors.NotFoundError("series "+name))
		return
	}
	render.JSON(w, r, seriesResponse(ws, win))
}

// GetPanel handles GET /api/panel
func (h *ResultHandler) GetPanel(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	res, ok := h.latest(w, r)
	if !ok {
		return
	}
	if res.Panel == nil {
		h.errorHandler.HandleError(w, r, apperrors.NotFoundError("panel"))
		return
	}
	render.JSON(w, r, panelResponse(res.Panel, win))
}

// GetRegression handles GET /api/regression
func (h *ResultHandler) GetRegression(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w, r)
	if !ok {
		return
	}
	if res.Regression == nil || res.Regression.Model == nil {
		h.errorHandler.HandleError(w, r, apperrors.NotFoundError("regression"))
		return
	}
	render.JSON(w, r, regressionResponse(res.Regression))
}

// Health handles GET /healthz
func (h *ResultHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse(h.source.Latest()))
}

// window bounds rows by week key; a zero end is open
type window struct {
	from, to domain.WeeklyKey
}

func (w window) contains(k domain.WeeklyKey) bool {
	if !w.from.IsZero() && k.Before(w.from) {
		return false
	}
	if !w.to.IsZero() && w.to.Before(k) {
		return false
	}
	return true
}

func parseWindow(r *http.Request) (window, error) {
	var w window
	q := r.URL.Query()
	// from is checked before to
	params := []struct {
		name string
		dst  *domain.WeeklyKey
	}{{"from", &w.from}, {"to", &w.to}}
	for _, p := range params {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		k, err := domain.ParseWeeklyKey(v)
		if err != nil {
			return window{}, apperrors.NewValidationError("invalid %s week %q: %v", p.name, v, err)
		}
		*p.dst = k
	}
	if !w.from.IsZero() && !w.to.IsZero() && w.to.Before(w.from) {
		return window{}, apperrors.NewValidationError("from %s is after to %s", w.from, w.to)
	}
	return w, nil
}
