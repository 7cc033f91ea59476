package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"topolab/internal/adapter"
	"topolab/internal/handler"
	"topolab/internal/hub"
	"topolab/internal/loader"
	"topolab/internal/metrics"
	"topolab/internal/repository/sqlite"
	"topolab/internal/service"
	"topolab/internal/watcher"
)

var (
	serveAddr     string
	serveDB       string
	serveTopology string
	serveSample   bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with a live event stream",
		Long: `Serve the topology API, the /events SSE stream and Prometheus metrics.
Topology files named in watch.files (and --topology) are reloaded when they
change on disk.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (overrides database.path)")
	serveCmd.Flags().StringVarP(&serveTopology, "topology", "t", "", "topology file to load at startup")
	serveCmd.Flags().BoolVar(&serveSample, "sample", false, "start with the sample topology")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	dbPath := cfg.Database.Path
	if serveDB != "" {
		dbPath = serveDB
	}

	engine, err := cfg.RuleEngine()
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	repo, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()
	logger.Info("Database opened", "path", dbPath)

	g, report, err := buildGraph(serveTopology, serveSample, engine)
	if err != nil {
		return err
	}
	logSkipped(serveTopology, report)
	components := g.Len()

	reg := metrics.NewRegistry()
	eventBus := service.NewEventBus()
	session := service.NewSession(g, cfg.SimulationSettings(),
		service.WithStore(repo),
		service.WithEventBus(eventBus),
		service.WithMetrics(reg),
		service.WithLogger(logger),
		service.WithLayer(cfg.Layer()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// SSE hub, fed from the event bus
	sseHub := hub.New(logger)
	go sseHub.Run(ctx)

	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	defer eventBus.Unsubscribe(eventChan)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventChan:
				sseHub.Broadcast(event)
			}
		}
	}()

	sessionDone := make(chan error, 1)
	go func() {
		sessionDone <- session.Run(ctx)
	}()

	watched := append([]string(nil), cfg.Watch.Files...)
	if serveTopology != "" {
		watched = append(watched, serveTopology)
	}
	if len(watched) > 0 {
		w := watcher.New(func(path string) {
			reloadTopology(ctx, session, path)
		}, watched...).
			WithDebounce(cfg.Watch.Debounce.Duration()).
			WithLogger(logger)
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("File watcher stopped", "error", err)
			}
		}()
	}

	api := handler.NewTopologyHandler(session, engine, logger)
	api.RegisterImporter(adapter.NewScanImporter(logger))

	mux := http.NewServeMux()
	api.Register(mux)
	mux.Handle("GET /events", sseHub)
	mux.Handle("GET /metrics", reg.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: addr,
		Handler: handler.Chain(mux,
			handler.Recover(logger),
			handler.CORS,
			handler.Logger(logger),
			handler.Metrics(reg),
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", addr, "components", components)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := <-sessionDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Session stopped with error", "error", err)
	}

	logger.Info("Server stopped")
	return runErr
}

// reloadTopology replaces the session graph with the contents of path
func reloadTopology(ctx context.Context, session *service.Session, path string) {
	result, err := loader.LoadFile(path)
	if err != nil {
		logger.Warn("Failed to reload topology", "path", path, "error", err)
		return
	}
	for _, s := range result.Skipped {
		logger.Warn("Skipped record", "source", path, "kind", s.Kind, "index", s.Index, "id", s.ID, "reason", s.Reason)
	}

	report, err := session.LoadDocument(ctx, result.Document)
	if err != nil {
		logger.Warn("Failed to reload topology", "path", path, "error", err)
		return
	}
	logger.Info("Topology reloaded", "path", path, "skipped", len(result.Skipped)+len(report.Skipped))
}
