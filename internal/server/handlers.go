package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"greenery/internal/greenery"
	"greenery/internal/logging"
)

func (s *Server) newHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestContext)
	r.Use(s.recoverPanics)
	r.Use(s.metrics.middleware)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Post("/readGeneral", s.handleReadGeneral)
	r.Post("/createGeneral", s.handleCreateGeneral)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	return r
}

func (s *Server) handleReadGeneral(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", s.allowOrigin)

	id, err := greenery.DecodeGreeneryID(s.limitBody(w, r))
	if err != nil {
		s.writeRecordError(w, r, err)
		return
	}

	data, err := s.records.Read(r.Context(), id)
	if err != nil {
		s.writeRecordError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleCreateGeneral(w http.ResponseWriter, r *http.Request) {
	info, err := greenery.DecodeGeneralInfo(s.limitBody(w, r))
	if err != nil {
		s.writeRecordError(w, r, err)
		return
	}

	if err := s.records.Create(r.Context(), info); err != nil {
		s.writeRecordError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Ready(r.Context()); err != nil {
		logging.FromContext(r.Context(), s.logger).WithError(err).Warn("readiness check failed")
		s.writeError(w, r, http.StatusServiceUnavailable, "not_ready", "object store unavailable")
		return
	}
	s.writeJSON(w, r, http.StatusOK, statusResponse{Status: "ready"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, "not_found", fmt.Sprintf("no route for %s", r.URL.Path))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// writeRecordError maps service and decode errors onto HTTP statuses.
// Internal failures get a generic message; details stay in the log.
func (s *Server) writeRecordError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "request_too_large",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, greenery.ErrMalformedRequest),
		errors.Is(err, greenery.ErrMissingField),
		errors.Is(err, greenery.ErrInvalidID):
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, greenery.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "not_found", "record not found")
	default:
		logging.FromContext(r.Context(), s.logger).WithError(err).Error("request failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) io.Reader {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	return r.Body
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	s.writeJSON(w, r, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
