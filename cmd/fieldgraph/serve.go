package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	config "github.com/hanpama/fieldgraph/internal/config"
	eventbus "github.com/hanpama/fieldgraph/internal/eventbus"
	metrics "github.com/hanpama/fieldgraph/internal/metrics"
	otel "github.com/hanpama/fieldgraph/internal/otel"
	schema "github.com/hanpama/fieldgraph/internal/schema"
	server "github.com/hanpama/fieldgraph/internal/server"
	watch "github.com/hanpama/fieldgraph/internal/watch"
)

const (
	analyzePath     = "/graphql/analyze"
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve query analysis over HTTP",
		Long: `Starts an HTTP server that accepts GraphQL requests on ` + analyzePath + ` and
answers with the field dependency graph of the requested operation instead of
executing it. Batched requests are answered in order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx)
		},
	}
	f := cmd.Flags()
	f.String("addr", ":8080", "Listen address")
	f.Bool("watch", false, "Reload the schema when its files change")
	f.Bool("pretty", false, "Indent JSON responses")
	f.Duration("timeout", 10*time.Second, "Per-request analysis timeout")
	f.Int64("max-body-bytes", 1<<20, "Maximum request body size")
	f.Int("cache-size", 1024, "Number of analysis results to cache, 0 disables")
	f.StringSlice("cors-origin", nil, "Allowed CORS origin. Repeatable, * allows any")
	f.String("otel-endpoint", "", "OTLP/gRPC endpoint for traces, empty disables")
	f.Bool("metrics", true, "Expose Prometheus metrics")

	a.bindFlags(f, map[string]string{
		"server.addr":           "addr",
		"server.watch":          "watch",
		"server.pretty":         "pretty",
		"server.timeout":        "timeout",
		"server.max_body_bytes": "max-body-bytes",
		"server.cache_size":     "cache-size",
		"server.cors_origins":   "cors-origin",
		"otel.endpoint":         "otel-endpoint",
		"metrics.enabled":       "metrics",
	})
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	cfg, logger, err := a.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	bus := eventbus.New()

	shutdownTracing, err := otel.Setup(bus, cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	source, closeSource, err := openSchema(cfg, logger, bus)
	if err != nil {
		return err
	}
	defer closeSource()

	srvOpts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithCacheSize(cfg.Server.CacheSize),
		server.WithLogger(logger),
		server.WithEventBus(bus),
	}
	if cfg.Server.Pretty {
		srvOpts = append(srvOpts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		srvOpts = append(srvOpts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	h, err := server.New(source, srvOpts...)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(analyzePath, h)
	if cfg.Metrics.Enabled {
		m, err := metrics.New(bus, nil)
		if err != nil {
			return err
		}
		defer m.Close()
		mux.Handle(cfg.Metrics.Path, m.Handler())
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("fieldgraph listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("path", analyzePath),
			zap.Strings("schema", cfg.Schema),
			zap.Bool("watch", cfg.Server.Watch))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func openSchema(cfg *config.Config, logger *zap.Logger, bus *eventbus.Bus) (server.SchemaSource, func(), error) {
	if cfg.Server.Watch {
		w, err := watch.New(cfg.Schema, logger, bus)
		if err != nil {
			return nil, nil, err
		}
		return w, func() { _ = w.Close() }, nil
	}
	sch, err := schema.LoadFiles(cfg.Schema...)
	if err != nil {
		return nil, nil, err
	}
	return server.Static(sch), func() {}, nil
}
