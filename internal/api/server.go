// Package api exposes the HTTP boundary: upload, chat, document management
// and admin actions. Handlers translate pipeline errors into structured
// responses and never leak stack traces.
package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/seanblong/docchat/internal/auth"
	"github.com/seanblong/docchat/internal/chat"
	"github.com/seanblong/docchat/internal/ingest"
	"github.com/seanblong/docchat/internal/ratelimit"
	"github.com/seanblong/docchat/internal/store"
)

// Server wires the pipelines behind HTTP handlers.
type Server struct {
	Logger   zerolog.Logger
	Limiter  *ratelimit.Limiter
	Auth     *auth.Authenticator
	Pipeline *ingest.Pipeline
	Chat     *chat.Service
	Store    store.VectorStore

	MaxFileSize   int64
	Dim           int
	AllowRecreate bool
}

// deletePageSize bounds how many ids one delete-all page fetches; the loop
// keeps going until the store is empty.
const deletePageSize = 1000

// Routes builds the mux with request logging middleware attached.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/documents", s.handleDocuments)

	return hlog.NewHandler(s.Logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			s.Logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)
}

// clientIP keys the rate limiter. Proxy-aware via X-Forwarded-For.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func (s *Server) allow(w http.ResponseWriter, r *http.Request) bool {
	if s.Limiter.Allow(clientIP(r)) {
		return true
	}
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"success": false,
		"message": "Rate limit exceeded. Please try again later.",
	})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
