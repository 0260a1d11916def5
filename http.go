package actrec

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/actrec/internal/kit"
	"github.com/hazyhaar/actrec/internal/shield"
)

// RegisterHTTP mounts the control endpoints on r:
//
//	POST /sessions            {"url": ..., "id": ...}
//	GET  /sessions
//	GET  /sessions/{id}
//	POST /sessions/{id}/stop
//	GET  /metrics
func (s *Service) RegisterHTTP(r chi.Router) {
	ep := s.endpoints()

	r.Post("/sessions", func(w http.ResponseWriter, req *http.Request) {
		var body StartRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		s.serve(w, req, ep.start, &body, http.StatusCreated)
	})
	r.Get("/sessions", func(w http.ResponseWriter, req *http.Request) {
		s.serve(w, req, ep.list, nil, http.StatusOK)
	})
	r.Get("/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		s.serve(w, req, ep.get, &sessionIDRequest{ID: chi.URLParam(req, "id")}, http.StatusOK)
	})
	r.Post("/sessions/{id}/stop", func(w http.ResponseWriter, req *http.Request) {
		s.serve(w, req, ep.stop, &sessionIDRequest{ID: chi.URLParam(req, "id")}, http.StatusOK)
	})
	r.Handle("/metrics", s.metrics.Handler())
}

// Handler returns a router serving the control endpoints behind the
// shield middleware stack.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(s.logger) {
		r.Use(mw)
	}
	s.RegisterHTTP(r)
	return r
}

func (s *Service) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any, status int) {
	resp, err := ep(kit.WithTransport(r.Context(), "http"), req)
	if err != nil {
		status := httpStatus(err)
		shield.GetLogger(r.Context()).Debug("actrec: request failed", "status", status, "error", err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, status, resp)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionExists):
		return http.StatusConflict
	case errors.Is(err, ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
