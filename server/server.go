package server

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-michi/michi"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"github.com/velsand/tokengate/server/middleware"
)

const (
	maxHeaderBytes    = 1 << 20
	readTimeout       = 30 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second
	defaultRateLimit  = rate.Limit(20)
	defaultRateBurst  = 40
)

func encodeHex(b []byte) string { return hex.EncodeToString(b) }

// Server wires the handler into a michi router behind the middleware chain
// and an h2c-capable http.Server.
type Server struct {
	Router *michi.Router
	Server *http.Server

	middleware  []func(http.Handler) http.Handler
	routesAdded bool
}

func NewServer() *Server {
	router := michi.NewRouter()
	server := &http.Server{
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
	return &Server{Router: router, Server: server}
}

// Use adds middleware to the server. Must be called before AddRoutes.
func (s *Server) Use(mw ...func(http.Handler) http.Handler) {
	if s.routesAdded {
		panic("cannot add middleware after routes are registered")
	}
	s.middleware = append(s.middleware, mw...)
	s.rebuildHandlerChain()
}

func (s *Server) rebuildHandlerChain() {
	var handler http.Handler = s.Router
	// Apply in reverse so the first middleware added is outermost.
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	s.Server.Handler = h2c.NewHandler(handler, &http2.Server{})
}

// UseDefaultMiddleware installs the standard chain: recovery, logging, CORS,
// signature auth and per-caller rate limiting.
func (s *Server) UseDefaultMiddleware(logger *slog.Logger) {
	limiter := middleware.NewRateLimiter(logger, middleware.CallerKeyFunc, defaultRateLimit, defaultRateBurst)
	s.Use(
		middleware.RecoveryMiddleware,
		middleware.WithLogger(logger),
		middleware.WithCORS(logger),
		middleware.WithSignatureAuth(logger),
		limiter.Limit,
	)
}

// AddRoutes registers the API surface.
func (s *Server) AddRoutes(h *Handler) {
	s.routesAdded = true
	s.Router.Route("/api/v1", func(r *michi.Router) {
		r.HandleFunc("GET /registry", h.RegistryInfo)

		r.HandleFunc("POST /secrets", h.CreateSecret)
		r.HandleFunc("GET /secrets", h.ListSecrets)
		r.HandleFunc("GET /secrets/count", h.SecretsCount)
		r.HandleFunc("GET /secrets/{id}", h.GetSecret)
		r.HandleFunc("PUT /secrets/{id}/gate", h.UpdateGate)
		r.HandleFunc("POST /secrets/{id}/access", h.RequestAccess)
		r.HandleFunc("GET /secrets/{id}/access/{addr}", h.HasAccess)
		r.HandleFunc("GET /secrets/{id}/grant/{addr}", h.PermanentAccess)
		r.HandleFunc("GET /secrets/{id}/gate-check/{addr}", h.GateCheck)
		r.HandleFunc("GET /secrets/{id}/handles", h.SecretHandles)

		r.HandleFunc("GET /relayer/key", h.RelayerKey)
		r.HandleFunc("POST /relayer/inputs", h.RegisterInputs)
		r.HandleFunc("POST /relayer/decrypt", h.UserDecrypt)
	})
}

// ListenAndServe serves on addr until the listener fails or Shutdown runs.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Server.Serve(ln)
}

// ServeHTTP implements http.Handler, mostly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Server.Handler.ServeHTTP(w, r)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Debug("shutting down server")
	return s.Server.Shutdown(ctx)
}
