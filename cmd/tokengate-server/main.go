// Command tokengate-server runs the registry and relayer behind one HTTP
// API. Configuration comes from the environment, with a .env file picked up
// when present.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/joho/godotenv"

	"github.com/velsand/tokengate/pkg/gate"
	"github.com/velsand/tokengate/pkg/model"
	"github.com/velsand/tokengate/pkg/registry"
	"github.com/velsand/tokengate/pkg/relayer"
	"github.com/velsand/tokengate/pkg/token"
	"github.com/velsand/tokengate/server"
	"github.com/velsand/tokengate/server/stores"
)

func main() {
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("TOKENGATE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registryAddr, err := registryAddress()
	if err != nil {
		return err
	}

	store, cleanup, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var resolver gate.Resolver
	if endpoint := os.Getenv("TOKENGATE_RPC"); endpoint != "" {
		logger.Info("resolving token contracts via RPC", "endpoint", endpoint)
		resolver = token.NewRPCResolver(endpoint, logger)
	} else {
		logger.Warn("TOKENGATE_RPC not set; using an empty in-memory token ledger, all gates will fail")
		resolver = token.NewStatic()
	}

	rel, err := relayer.New(logger)
	if err != nil {
		return err
	}
	reg := registry.New(registryAddr, store, rel, rel, gate.NewEvaluator(resolver), logger)

	srv := server.NewServer()
	srv.UseDefaultMiddleware(logger)
	srv.AddRoutes(server.NewHandler(reg, rel, logger))

	listen := os.Getenv("TOKENGATE_LISTEN")
	if listen == "" {
		listen = ":8080"
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", listen, "registry", registryAddr.Hex())
		errCh <- srv.ListenAndServe(listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// registryAddress reads the registry identity from the environment. The
// identity binds input proofs and authorization scopes, so it has to stay
// stable across restarts once secrets exist.
func registryAddress() (model.Address, error) {
	raw := os.Getenv("TOKENGATE_REGISTRY_ADDRESS")
	if raw == "" {
		return model.Address{}, errors.New("TOKENGATE_REGISTRY_ADDRESS must be set")
	}
	return model.ParseAddress(raw)
}

// openStore picks the store backend from TOKENGATE_STORE: memory (default),
// bolt or datastore.
func openStore(ctx context.Context, logger *slog.Logger) (registry.Store, func(), error) {
	noop := func() {}
	switch kind := os.Getenv("TOKENGATE_STORE"); kind {
	case "", "memory":
		logger.Info("using in-memory store")
		return stores.NewMemory(), noop, nil
	case "bolt":
		path := os.Getenv("TOKENGATE_BOLT_PATH")
		if path == "" {
			path = "tokengate.db"
		}
		store, err := stores.NewBolt(path)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using bolt store", "path", path)
		return store, func() { _ = store.Close() }, nil
	case "datastore":
		project := os.Getenv("TOKENGATE_DATASTORE_PROJECT")
		if project == "" {
			return nil, noop, errors.New("TOKENGATE_DATASTORE_PROJECT must be set for the datastore backend")
		}
		client, err := datastore.NewClient(ctx, project)
		if err != nil {
			return nil, noop, err
		}
		store, err := stores.NewDataStore(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		logger.Info("using datastore store", "project", project)
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, noop, errors.New("unknown TOKENGATE_STORE " + kind)
	}
}
