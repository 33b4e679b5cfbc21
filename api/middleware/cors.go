package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

const accessTokenHeader = "X-Mapas-Token"

// CORS applies the allowed origin policy for browser clients.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", accessTokenHeader, requestIDHeader},
		ExposedHeaders:   []string{accessTokenHeader, requestIDHeader, "Content-Language"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
