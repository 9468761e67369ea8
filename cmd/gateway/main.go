// Package main is the entry point for the RDAP gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/regdata/rdapgw/internal/config"
	"github.com/regdata/rdapgw/internal/gateway"
	"github.com/regdata/rdapgw/internal/middleware"
	"github.com/regdata/rdapgw/internal/observability"
	"github.com/regdata/rdapgw/internal/rdap"
	"github.com/regdata/rdapgw/internal/rdap/conformance"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)

	conf := initConformance(cfg, logger)

	runGateway(cfg, flags.configPath, conf, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("RDAPGW_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("RDAPGW_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("RDAPGW_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("rdapgw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(path string, logger observability.Logger) *config.GatewayConfig {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Warn("failed to load configuration, using defaults",
			observability.String("path", path),
			observability.Error(err),
		)
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.String("address", cfg.Server.Address),
		observability.Int("maxConcurrent", cfg.Admission.MaxConcurrent),
		observability.String("conformanceSource", cfg.Conformance.Source),
	)

	return cfg
}

// initConformance loads the conformance list from the configured
// backing store. The process does not serve requests until the list is
// loaded.
func initConformance(cfg *config.GatewayConfig, logger observability.Logger) *conformance.Provider {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var src conformance.Source
	switch cfg.Conformance.Source {
	case config.ConformanceSourceFile:
		src = &conformance.FileSource{Path: cfg.Conformance.File}
	case config.ConformanceSourceRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Conformance.Redis.Address,
			Password: cfg.Conformance.Redis.Password,
			DB:       cfg.Conformance.Redis.DB,
		})
		src = &conformance.RedisSource{
			Client:  client,
			Key:     cfg.Conformance.Redis.Key,
			Timeout: cfg.Conformance.Redis.Timeout.Duration(),
		}
	default:
		src = conformance.DefaultList
	}

	conf, err := conformance.NewProvider(ctx, src)
	if err != nil {
		logger.Fatal("failed to initialize conformance list", observability.Error(err))
	}

	observability.GetGatewayMetrics().SetConformanceListSize(len(conf.List()))
	logger.Info("conformance list loaded",
		observability.Strings("conformance", conf.List()),
	)

	return conf
}

// notImplementedHandler stands in for the registry query service. It
// is only reached by validated, admitted requests.
func notImplementedHandler(conf *conformance.Provider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		rdap.WriteError(w, rdap.NewNotImplemented().WithConformance(conf.List()))
	})
}

// runGateway assembles the handler chain and runs the HTTP server
// until a shutdown signal arrives.
func runGateway(
	cfg *config.GatewayConfig,
	configPath string,
	conf *conformance.Provider,
	logger observability.Logger,
) {
	admission := gateway.NewAdmissionController(cfg.Admission.MaxConcurrent)
	pipeline := gateway.NewPipeline(admission, conf,
		gateway.WithLogger(logger),
		gateway.WithBasePath(cfg.Server.BasePath),
	)

	chain := middleware.Recovery(logger, conf)(
		middleware.RequestID()(
			middleware.Logging(logger)(
				pipeline.Middleware()(notImplementedHandler(conf)),
			),
		),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/", chain)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := startConfigWatcher(ctx, configPath, pipeline, logger)

	go func() {
		logger.Info("gateway listening",
			observability.String("address", cfg.Server.Address),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", observability.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if watcher != nil {
		_ = watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", observability.Error(err))
	}
}

// startConfigWatcher watches the config file and applies admission
// limit changes at runtime. A missing config file disables watching.
func startConfigWatcher(
	ctx context.Context,
	configPath string,
	pipeline *gateway.Pipeline,
	logger observability.Logger,
) *config.Watcher {
	if _, err := os.Stat(configPath); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(configPath, func(cfg *config.GatewayConfig) {
		pipeline.Admission().UpdateMax(cfg.Admission.MaxConcurrent)
		logger.Info("admission limit updated",
			observability.Int("maxConcurrent", cfg.Admission.MaxConcurrent),
		)
	}, config.WithWatcherLogger(logger))
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}

	return watcher
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
