package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

type corsLogger struct {
	logger *slog.Logger
}

func (c *corsLogger) Printf(format string, args ...interface{}) {
	c.logger.Debug(fmt.Sprintf("CORS: %s", fmt.Sprintf(format, args...)))
}

// WithCORS adds CORS middleware. The API is meant to be called from browser
// wallets, so all origins are allowed and auth travels in custom headers.
func WithCORS(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		middleware := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{"*"},
		})
		return middleware.Handler(h)
	}
}
