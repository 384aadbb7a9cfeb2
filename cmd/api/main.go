package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jaskrrish/go-dqc/internal/config"
	dqccore "github.com/jaskrrish/go-dqc/internal/dqc"
	"github.com/jaskrrish/go-dqc/internal/dqc/executor"
	"github.com/jaskrrish/go-dqc/internal/handlers"
)

const jobRetention = 24 * time.Hour

func main() {
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		panic(err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Executor is optional; without it compiled circuits can only be downloaded
	var runner dqccore.Runner
	if cfg.ExecutorEnabled() {
		client, err := executor.NewClient(&executor.Config{
			BaseURL:      cfg.Executor.BaseURL,
			APIKey:       cfg.Executor.APIKey,
			PollInterval: cfg.Executor.PollInterval,
			MaxWait:      cfg.Executor.Timeout,
		}, logger.Named("executor"))
		if err != nil {
			logger.Fatal("executor client", zap.Error(err))
		}
		runner = client
	}

	jobs, err := dqccore.NewJobManager(cfg.Cache.Size, cfg.Executor.Shots, runner, logger.Named("jobs"))
	if err != nil {
		logger.Fatal("job manager", zap.Error(err))
	}
	dqcHandler := handlers.NewDQCHandler(jobs, logger.Named("http"))

	mux := http.NewServeMux()
	mux.HandleFunc("/", handlers.HomeHandler)
	mux.HandleFunc("/health", handlers.HealthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/dqc/compile", dqcHandler.CompileHandler)
	mux.HandleFunc("/api/v1/dqc/jobs/", dqcHandler.JobsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      loggingMiddleware(logger, mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupLoop(ctx, jobs, logger)

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.Bool("executor", cfg.ExecutorEnabled()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// cleanupLoop drops old jobs once an hour
func cleanupLoop(ctx context.Context, jobs *dqccore.JobManager, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := jobs.CleanupJobs(jobRetention); removed > 0 {
				logger.Info("removed old jobs", zap.Int("removed", removed))
			}
		}
	}
}
