package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"vendorgate/internal/config"
)

// Cors builds the net/http CORS middleware. The router mounts it through the
// fiber adaptor.
func Cors(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
