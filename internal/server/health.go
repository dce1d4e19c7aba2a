package server

import (
	"net/http"

	"github.com/n0madic/go-tongue/internal/codec"
	"github.com/n0madic/go-tongue/internal/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	codec.WriteJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}
