package server

import (
	"net/http"
)

// IndexHandler reports that the service is up.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  statusSuccess,
			"message": s.config.GetAppName() + " online",
		})
	}
}

// HealthHandler reports the ephemeral store backend in use.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": statusSuccess,
			"store":  s.store.Kind(),
		})
	}
}

// PreflightHandler answers OPTIONS requests that carry no Origin; CorsMiddleware answers the rest.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// NotFoundHandler answers every path no other route claims.
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, "not_found", "route not found", http.StatusNotFound)
	}
}
