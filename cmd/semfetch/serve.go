package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/semfetch/config"
	urlfetcher "github.com/c360studio/semfetch/processor/url-fetcher"
	"github.com/c360studio/semfetch/source/webfetch"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server and consumer.
const shutdownTimeout = 10 * time.Second

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when NATS is configured, the url-fetcher consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, logger, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				loaded.cfg.HTTP.Addr = addr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx, loaded, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides http.addr)")
	return cmd
}

// server holds everything runServe starts, so it can be torn down in order.
type server struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	comp     *urlfetcher.Component
	nats     *natsclient.Client
	janitor  *webfetch.Janitor
	watcher  *config.Watcher
	http     *http.Server
}

// newServer builds the component, HTTP mux and metrics registry. natsClient
// may be nil for an HTTP-only server.
func newServer(cfg *config.Config, logger *slog.Logger, natsClient *natsclient.Client, fetchOpts ...webfetch.Option) (*server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	compCfg := urlfetcher.DefaultConfig()
	compCfg.Fetch = cfg.Fetch

	comp, err := urlfetcher.New(compCfg, natsClient,
		urlfetcher.WithLogger(logger),
		urlfetcher.WithRegisterer(registry),
		urlfetcher.WithFetchOptions(fetchOpts...))
	if err != nil {
		return nil, err
	}
	s := &server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		comp:     comp,
		nats:     natsClient,
	}

	mux := http.NewServeMux()
	comp.RegisterHTTPHandlers(cfg.HTTP.Prefix, mux)
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}
	mux.HandleFunc("/healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// handleHealth reports process liveness and consumer state.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.nats != nil && !s.comp.Health().Healthy {
		status = "degraded"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	fmt.Fprintln(w, status)
}

// applyConfig pushes a reloaded config into the running pipeline.
func (s *server) applyConfig(cfg *config.Config) {
	s.comp.ApplyConfig(cfg.Fetch)
}

func runServe(ctx context.Context, loaded *loadedConfig, logger *slog.Logger) error {
	var natsClient *natsclient.Client
	if natsURL := resolveNATSURL(loaded.cfg); natsURL != "" {
		client, err := connectToNATS(ctx, natsURL, logger)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())
		natsClient = client
	}

	s, err := newServer(loaded.cfg, logger, natsClient)
	if err != nil {
		return err
	}

	if err := s.startBackground(ctx); err != nil {
		return err
	}
	defer s.stopBackground()

	watcher, err := loaded.newWatcher(s.applyConfig, logger)
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		s.watcher = watcher
		defer watcher.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening",
			"addr", s.http.Addr,
			"prefix", s.cfg.HTTP.Prefix,
			"metrics", s.cfg.Metrics.Enabled)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// resolveNATSURL prefers the NATS_URL environment variable over config.
func resolveNATSURL(cfg *config.Config) string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	return cfg.NATS.URL
}

// startBackground starts the url-fetcher consumer, which schedules its own
// housekeeping, or a standalone janitor when serving HTTP only.
func (s *server) startBackground(ctx context.Context) error {
	if s.nats != nil {
		if err := s.comp.Start(ctx); err != nil {
			return fmt.Errorf("start url-fetcher: %w", err)
		}
		return nil
	}

	janitor, err := webfetch.NewJanitor(s.comp.Fetcher(), s.cfg.Fetch.GetHousekeeping(), s.logger)
	if err != nil {
		return err
	}
	janitor.Start()
	s.janitor = janitor
	s.logger.Info("NATS not configured, serving HTTP only")
	return nil
}

func (s *server) stopBackground() {
	if s.janitor != nil {
		<-s.janitor.Stop().Done()
	}
	if s.nats != nil {
		if err := s.comp.Stop(shutdownTimeout); err != nil {
			s.logger.Warn("url-fetcher stop", "error", err)
		}
	}
}

func connectToNATS(ctx context.Context, natsURL string, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", natsURL)

	client, err := natsclient.NewClient(natsURL,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", natsURL, err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", natsURL, err)
	}

	logger.Info("Connected to NATS", "url", natsURL)
	return client, nil
}
