// Package api serves sensor readings taken by the bus master over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sensorslave/host/master"
)

// Querier reads one sensor through the slave.
type Querier interface {
	Query(ctx context.Context, bundle, sensor uint8) (uint8, error)
}

// Reading is the JSON body for one sensor.
type Reading struct {
	Bundle uint8  `json:"bundle"`
	Sensor uint8  `json:"sensor"`
	Value  uint8  `json:"value"`
	Error  string `json:"error,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

type handlers struct {
	q   Querier
	log *slog.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(q Querier, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &handlers{q: q, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/sensors/{bundle}", h.getBundle)
	r.Get("/sensors/{bundle}/{sensor}", h.getSensor)
	return r
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// nibbleParam reads a 0-15 path parameter.
func nibbleParam(r *http.Request, name string) (uint8, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, name), 0, 8)
	if err != nil || n > 0xF {
		return 0, false
	}
	return uint8(n), true
}

func (h *handlers) getSensor(w http.ResponseWriter, r *http.Request) {
	bundle, ok := nibbleParam(r, "bundle")
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{"bundle must be 0-15"})
		return
	}
	sensor, ok := nibbleParam(r, "sensor")
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{"sensor must be 0-15"})
		return
	}

	v, err := h.q.Query(r.Context(), bundle, sensor)
	if err != nil {
		h.log.Warn("sensor query failed", "bundle", bundle, "sensor", sensor, "err", err)
		writeJSON(w, statusFor(err), apiError{err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Reading{Bundle: bundle, Sensor: sensor, Value: v})
}

// getBundle queries sensors 0..count-1; count defaults to 16.
func (h *handlers) getBundle(w http.ResponseWriter, r *http.Request) {
	bundle, ok := nibbleParam(r, "bundle")
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{"bundle must be 0-15"})
		return
	}
	count := uint64(16)
	if s := r.URL.Query().Get("count"); s != "" {
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil || n > 16 {
			writeJSON(w, http.StatusBadRequest, apiError{"count must be 0-16"})
			return
		}
		count = n
	}

	out := make([]Reading, 0, count)
	for s := uint8(0); s < uint8(count); s++ {
		v, err := h.q.Query(r.Context(), bundle, s)
		if r.Context().Err() != nil {
			return
		}
		rd := Reading{Bundle: bundle, Sensor: s, Value: v}
		if err != nil {
			rd.Error = err.Error()
		}
		out = append(out, rd)
	}
	writeJSON(w, http.StatusOK, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, master.ErrBadSelection):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
