package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap/zapcore"

	"mare-records/internal/adapters/imagesearch/derpibooru"
	"mare-records/internal/adapters/storage"
	"mare-records/internal/config"
	"mare-records/internal/monitor"
	"mare-records/internal/platform/logger"
	"mare-records/internal/platform/loki"
	"mare-records/internal/ports/images"
	"mare-records/internal/router"
)

// @title Mare Records API
// @version 1.0
// @description Registro de yeguas: alta, consulta, actualización y borrado sobre la tabla mares.
// @BasePath /
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Loki es opcional: sin LOKI_URL solo se loguea a stdout.
	var sinks []zapcore.WriteSyncer
	var lokiClient *loki.Client
	if cfg.Loki.URL != "" {
		labels := map[string]string{
			"source": cfg.Log.App,
			"pid":    strconv.Itoa(os.Getpid()),
		}
		for k, v := range cfg.Loki.Labels {
			labels[k] = v
		}
		lokiClient, err = loki.New(loki.Config{
			URL:        cfg.Loki.URL,
			Labels:     labels,
			BatchSize:  cfg.Loki.BatchSize,
			BatchWait:  cfg.Loki.BatchWait,
			BufferSize: cfg.Loki.BufferSize,
			Timeout:    cfg.Loki.Timeout,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, lokiClient)
	}

	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		App:    cfg.Log.App,
		Sinks:  sinks,
	})
	defer func() {
		_ = log.Sync()
		if lokiClient != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Loki.Timeout)
			defer cancel()
			_ = lokiClient.Close(closeCtx)
		}
	}()

	repo, err := storage.Open(ctx, storage.Config{
		URL:            cfg.Database.URL,
		MaxOpenConns:   cfg.Database.MaxOpenConns,
		MaxIdleConns:   cfg.Database.MaxIdleConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}, log)
	if err != nil {
		log.Error("storage initialization failed", map[string]any{"error": err.Error()})
		return err
	}
	defer repo.Close()

	var finder images.Finder
	if cfg.ImageSearch.Enabled {
		c, err := derpibooru.NewClient(derpibooru.Config{
			BaseURL: cfg.ImageSearch.URL,
			Timeout: cfg.ImageSearch.Timeout,
		})
		if err != nil {
			return fmt.Errorf("image search: %w", err)
		}
		finder = c
	}

	if cfg.Probe.Enabled {
		probe := monitor.NewStorageProbe(repo, log, cfg.Database.QueryTimeout)
		if err := probe.Start(cfg.Probe.Schedule); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Global.ShutdownTimeout)
			defer cancel()
			_ = probe.Stop(stopCtx)
		}()
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.NewRouter(router.Options{
			Repo:         repo,
			Logger:       log,
			QueryTimeout: cfg.Database.QueryTimeout,
			ImageFinder:  finder,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", map[string]any{"error": err.Error()})
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Global.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}
