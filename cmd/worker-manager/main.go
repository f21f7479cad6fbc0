// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loan-agent/internal/common/cache"
	"loan-agent/internal/common/camunda"
	"loan-agent/internal/common/config"
	"loan-agent/internal/common/logger"
	"loan-agent/internal/common/observability"
	"loan-agent/internal/narrative"
	"loan-agent/internal/tools"
	"loan-agent/pkg/registry"

	nr "loan-agent/internal/workers/fraud/narrative-report"
	ve "loan-agent/internal/workers/verification/verify-evidence"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFromApp(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- Report cache (optional) ---
	opts := []narrative.Option{narrative.WithObservability(obs)}
	if cfg.Cache.Enabled {
		var redis *cache.RedisClient
		err = retryWithBackoff(func() error {
			redis = cache.NewRedis(cfg.Cache.Redis)
			if err := redis.Ping(ctx); err != nil {
				redis.Close()
				return err
			}
			return nil
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("report cache disabled", zap.Error(err))
		} else {
			defer redis.Close()
			opts = append(opts, narrative.WithCache(redis))
			zapLog.Info("Redis connected successfully")
		}
	}

	reportClient, err := narrative.NewClient(narrative.ConfigFromApp(cfg), log, opts...)
	if err != nil {
		zapLog.Fatal("report client unavailable", zap.Error(err))
	}

	catalog, err := registry.Default()
	if err != nil {
		zapLog.Fatal("activity catalog invalid", zap.Error(err))
	}
	toolRegistry := tools.NewRegistry(log)
	if err := tools.RegisterVerificationTools(toolRegistry, catalog, tools.NewVerifier(log)); err != nil {
		zapLog.Fatal("tool registration failed", zap.Error(err))
	}

	// --- Workers ---
	handlers := []camunda.JobHandler{
		nr.NewHandler(&nr.Config{Timeout: workerTimeout(cfg, nr.TaskType), Retry: zeebe.RetryConfig()}, reportClient, log),
	}
	for _, taskType := range []string{ve.TaskTypeVerifyPaystub, ve.TaskTypeVerifyID} {
		if _, ok := catalog.FindTaskType(taskType); !ok {
			zapLog.Fatal("task type missing from catalog", zap.String("taskType", taskType))
		}
		h, err := ve.NewHandler(&ve.Config{Timeout: workerTimeout(cfg, taskType), Retry: zeebe.RetryConfig()}, taskType, toolRegistry, log)
		if err != nil {
			zapLog.Fatal("failed to create verification handler", zap.Error(err))
		}
		handlers = append(handlers, h)
	}

	var workers []*camunda.CamundaWorker
	for _, h := range handlers {
		if !config.IsWorkerEnabled(cfg, h.TaskType()) {
			zapLog.Info("worker disabled", zap.String("taskType", h.TaskType()))
			continue
		}
		wcfg := config.GetWorkerConfig(cfg, h.TaskType())
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), h, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, log))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, code := "healthy", http.StatusOK
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if cfg.Metrics.Enabled {
		go func() {
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping metrics server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func workerTimeout(cfg *config.Config, taskType string) time.Duration {
	return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
}
