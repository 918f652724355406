package middleware

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/ukydev/maintenance-hub/internal/config"
)

// NewCORS answers preflight requests for the configured browser origins.
func NewCORS(cfg config.ServerConfig) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsAllowedOrigins,
		AllowedMethods:   cfg.CorsAllowedMethods,
		AllowedHeaders:   cfg.CorsAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler
}
