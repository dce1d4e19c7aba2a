package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/n0madic/go-tongue/internal/codec"
	"github.com/n0madic/go-tongue/internal/config"
	"github.com/n0madic/go-tongue/internal/dispatch"
	"github.com/n0madic/go-tongue/internal/imagedata"
	"github.com/n0madic/go-tongue/internal/metrics"
	"github.com/n0madic/go-tongue/internal/types"
)

const analyzeRoute = "/api/analyze"

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var payload types.AnalyzePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.writeAnalyzeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	req, err := imagedata.Decode(payload.Image)
	if err != nil {
		s.writeAnalyzeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.Dispatcher.Analyze(r.Context(), req)
	if err != nil {
		status := dispatch.HTTPStatus(err)
		slog.Warn("analyze.failed",
			"request_id", requestIDFrom(r.Context()),
			"status", status,
			"error", err,
		)
		s.writeAnalyzeError(w, status, err.Error())
		return
	}

	metrics.HTTPRequestsTotal.WithLabelValues(analyzeRoute, strconv.Itoa(http.StatusOK)).Inc()
	codec.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	s.writeAnalyzeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (s *Server) writeAnalyzeError(w http.ResponseWriter, status int, message string) {
	metrics.HTTPRequestsTotal.WithLabelValues(analyzeRoute, strconv.Itoa(status)).Inc()
	codec.WriteError(w, status, message)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := int64(0)
	if s.Config != nil {
		limit = s.Config.MaxBodyBytes
	}
	if limit <= 0 {
		limit = config.DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeAnalyzeError(w, http.StatusBadRequest, "Request body too large")
			return nil, false
		}
		s.writeAnalyzeError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	return body, true
}
