package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/systmms/awsops/internal/errors"
)

// openPaths are served without bearer authentication.
var openPaths = map[string]bool{
	"/healthz":      true,
	"/openapi.json": true,
	"/metrics":      true,
}

// Handler assembles the full HTTP surface: probe and capability endpoints,
// Prometheus metrics, and the MCP transports (streamable at /mcp, SSE at
// /sse + /message). CORS runs before auth so preflight requests pass.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/openapi.json", s.handleOpenAPI)
	mux.Handle("/metrics", promhttp.Handler())

	streamable := server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath("/mcp"),
	)
	mux.Handle("/mcp", streamable)

	sse := server.NewSSEServer(s.mcp)
	mux.Handle("/sse", sse)
	mux.Handle("/message", sse)

	return corsMiddleware(s.authMiddleware(mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(openAPISchema())
}

func openAPISchema() []byte {
	schema := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "AWS Operations MCP Server",
			"version":     "1.0.0",
			"description": "Multi-account AWS operations via MCP protocol",
		},
		"servers": []map[string]interface{}{
			{"url": "/"},
		},
		"paths": map[string]interface{}{
			"/healthz": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "OK"},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
	data, _ := json.Marshal(schema)
	return data
}

// corsMiddleware allows all origins and answers preflight requests before
// the auth layer can reject them.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware enforces bearer-token auth on tool traffic. A missing or
// malformed header is 401; a token mismatch is 403. An empty configured
// token disables validation and any presented token is accepted.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if openPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			s.rejectAuth(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.rejectAuth(w, http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <token>")
			return
		}

		if s.authToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.rejectAuth(w, http.StatusForbidden, "Invalid authentication token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rejectAuth(w http.ResponseWriter, status int, detail string) {
	authErr := &apperrors.AuthenticationError{Reason: detail}
	s.logger.Debug("Rejected request: %v", authErr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
