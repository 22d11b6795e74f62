package server

import (
	"log/slog"
	"net/http"

	"github.com/manimate/manimate-api/internal/auth"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing. Everything under
// /user/ requires a valid bearer token.
func NewRouter(h *Handlers, verifier *auth.Verifier, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	user := http.NewServeMux()
	user.HandleFunc("POST /user/generate", h.Generate)
	user.HandleFunc("POST /user/compile", h.Compile)
	user.HandleFunc("GET /user/videos", h.Videos)
	user.HandleFunc("GET /user/prompts", h.Prompts)
	user.HandleFunc("GET /user/code", h.Code)
	user.HandleFunc("DELETE /user/clear-history", h.ClearHistory)
	mux.Handle("/user/", AuthMiddleware(verifier)(user))

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
