// Package api provides the thin read-only HTTP handlers in front of the
// provider adapters. Handlers translate domain requests into adapter calls
// and adapter errors into stable error codes; they hold no resilience logic
// and never touch circuit breaker or rate limiter state directly.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/oluwafemi02/sportsfeed-core/internal/apierror"
	"github.com/oluwafemi02/sportsfeed-core/internal/providers"
	"github.com/oluwafemi02/sportsfeed-core/internal/upstream"
)

// Handler serves the public data endpoints.
type Handler struct {
	fixtures    *providers.FixturesAdapter
	odds        *providers.OddsAdapter
	predictions *providers.PredictionsAdapter
	logger      *slog.Logger
}

// New creates the API handler over the three provider adapters.
func New(fixtures *providers.FixturesAdapter, odds *providers.OddsAdapter, predictions *providers.PredictionsAdapter, logger *slog.Logger) *Handler {
	return &Handler{fixtures: fixtures, odds: odds, predictions: predictions, logger: logger}
}

// RegisterRoutes adds the data endpoints to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/fixtures", h.listFixtures)
	mux.HandleFunc("GET /api/fixtures/{id}", h.getFixture)
	mux.HandleFunc("GET /api/fixtures/{id}/odds", h.getOdds)
	mux.HandleFunc("GET /api/fixtures/{id}/prediction", h.getPrediction)
}

func (h *Handler) listFixtures(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	fixtures, err := h.fixtures.ByDate(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fixtures": fixtures})
}

func (h *Handler) getFixture(w http.ResponseWriter, r *http.Request) {
	id, ok := fixtureID(w, r)
	if !ok {
		return
	}
	fixture, err := h.fixtures.ByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fixture)
}

func (h *Handler) getOdds(w http.ResponseWriter, r *http.Request) {
	id, ok := fixtureID(w, r)
	if !ok {
		return
	}
	quotes, err := h.odds.ForFixture(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fixture_id": id, "quotes": quotes})
}

func (h *Handler) getPrediction(w http.ResponseWriter, r *http.Request) {
	id, ok := fixtureID(w, r)
	if !ok {
		return
	}
	prediction, err := h.predictions.ForFixture(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

func fixtureID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidRequest, "fixture id must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeError maps adapter errors onto the caller-facing contract: a clear
// split between "provider temporarily unavailable, retry later" and
// "invalid request", so callers can pick appropriate responses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ce *upstream.ClientError
		pe *upstream.ParseError
		ue *upstream.UnavailableError
	)

	switch {
	case errors.Is(err, providers.ErrNotFound):
		apierror.WriteJSON(w, r, http.StatusNotFound, apierror.NotFound, err.Error())

	case errors.As(err, &ce):
		code := apierror.InvalidRequest
		if ce.StatusCode() == http.StatusNotFound {
			code = apierror.NotFound
		}
		apierror.WriteJSON(w, r, ce.StatusCode(), code, ce.Error())

	case errors.As(err, &ue):
		if ue.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(ue.RetryAfter.Seconds())+1))
		}
		apierror.WriteJSON(w, r, http.StatusServiceUnavailable, apierror.UpstreamUnavailable, "provider temporarily unavailable, retry later")

	case errors.As(err, &pe):
		apierror.WriteJSON(w, r, http.StatusBadGateway, apierror.BadUpstreamPayload, "provider returned a malformed payload")

	case errors.Is(err, context.DeadlineExceeded):
		apierror.WriteJSON(w, r, http.StatusGatewayTimeout, apierror.DeadlineExceeded, "request deadline exceeded")

	case upstream.IsUnavailable(err):
		apierror.WriteJSON(w, r, http.StatusServiceUnavailable, apierror.UpstreamUnavailable, "provider temporarily unavailable, retry later")

	default:
		h.logger.Error("unexpected adapter error", "error", err, "path", r.URL.Path)
		apierror.WriteJSON(w, r, http.StatusInternalServerError, apierror.InternalError, "an unexpected error occurred")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
