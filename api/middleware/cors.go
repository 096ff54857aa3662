package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"github.com/samber/lo"
)

// CORS returns middleware allowing the comma separated origins of the web client.
func CORS(origins string) func(http.Handler) http.Handler {
	allowed := lo.Compact(lo.Map(strings.Split(origins, ","), func(origin string, _ int) string {
		return strings.TrimSpace(origin)
	}))
	return cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
