package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ducnm/chainscreen/internal/control"
	"github.com/ducnm/chainscreen/internal/core/config"
	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/ducnm/chainscreen/internal/screening"
)

// stdoutSink prints completed batches as JSON, one document per run.
type stdoutSink struct{}

func (stdoutSink) Persist(_ context.Context, batch *control.Batch) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(batch)
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	mode := flag.String("mode", "sync", "Operation: sync, screen or validate")
	wallet := flag.String("wallet", "", "Wallet address to sync")
	address := flag.String("address", "", "Address to screen (mode=screen)")
	chain := flag.String("chain", "ethereum", "Chain for screening (mode=screen)")
	since := flag.Duration("since", 0, "Only sync transactions newer than this (e.g. 720h)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})))
	slog.Info("Logger initialized", "level", slogLevel.String())

	var list screening.Watchlist
	if cfg.Redis.URL != "" {
		redisList, err := screening.NewRedisWatchlist(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect watchlist Redis", "error", err)
			os.Exit(1)
		}
		defer redisList.Close()
		list = redisList
		slog.Info("Using Redis watchlist")
	} else {
		list = screening.NewStatic()
		slog.Info("Using built-in watchlist")
	}

	engine, err := control.NewEngine(cfg, list, stdoutSink{})
	if err != nil {
		slog.Error("Failed to initialize engine", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go serveMetrics(ctx, fmt.Sprintf(":%d", cfg.Server.Port))

	switch *mode {
	case "sync":
		if *wallet == "" {
			slog.Error("Missing -wallet for sync mode")
			os.Exit(1)
		}
		req := control.SyncRequest{WalletAddress: *wallet}
		if *since > 0 {
			req.Window.Start = time.Now().UTC().Add(-*since)
		}
		if _, err := engine.SyncWallet(ctx, req); err != nil {
			slog.Error("Sync failed", "error", err)
			os.Exit(1)
		}

	case "screen":
		if *address == "" {
			slog.Error("Missing -address for screen mode")
			os.Exit(1)
		}
		result := engine.ScreenAddress(*address, domain.ChainID(*chain))
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			slog.Error("Failed to encode result", "error", err)
			os.Exit(1)
		}

	case "validate":
		failures := engine.ValidateSources(ctx)
		if len(failures) == 0 {
			fmt.Println("All source credentials are valid")
			return
		}
		for _, failure := range failures {
			slog.Error("Credential check failed", "source", failure.Source, "error", failure.Message)
		}
		os.Exit(1)

	default:
		slog.Error("Unknown mode", "mode", *mode)
		os.Exit(1)
	}
}

// serveMetrics exposes the Prometheus endpoint until ctx is cancelled,
// then shuts the server down gracefully.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics server shutdown", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("Metrics server stopped", "error", err)
	}
}
