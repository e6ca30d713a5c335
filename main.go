package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/knilesh2212/exam-paper-saas/config"
	"github.com/knilesh2212/exam-paper-saas/db"
	"github.com/knilesh2212/exam-paper-saas/ingestion"
	"github.com/knilesh2212/exam-paper-saas/logger"
	"github.com/knilesh2212/exam-paper-saas/render"
	"github.com/knilesh2212/exam-paper-saas/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, closeRecords, err := openRecords(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Unable to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeRecords()

	st := store.Open(ctx, records, store.Options{Logger: zl})
	if err := seed(ctx, st, cfg.SeedFile, zl); err != nil {
		zl.Fatal("Error seeding exam", zap.String("file", cfg.SeedFile), zap.Error(err))
	}

	gin.SetMode(cfg.GinMode)
	binding.EnableDecoderDisallowUnknownFields = true
	router, err := newRouter(cfg, st, zl)
	if err != nil {
		zl.Fatal("Error building router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		zl.Info("Exam paper server starting", zap.String("addr", cfg.ServerPort), zap.Bool("auth", cfg.Auth.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			zl.Fatal("Server startup error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	zl.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	zl.Info("Server exited gracefully.")
}

// openRecords connects the configured storage backend. The returned func
// releases it.
func openRecords(ctx context.Context, cfg *config.Config, zl *zap.Logger) (store.Records, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := db.InitDB(ctx, cfg.Storage.DatabaseURL, cfg.Storage.MaxConnections, zl)
		if err != nil {
			return nil, nil, err
		}
		if err := db.CreateSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("create schema: %w", err)
		}
		return db.NewPostgresRecords(pool), pool.Close, nil
	default:
		recs, err := db.NewFileRecords(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		zl.Info("Using file storage", zap.String("dir", cfg.Storage.Dir))
		return recs, func() {}, nil
	}
}

// seed imports path into a store that has never been written.
func seed(ctx context.Context, st *store.Store, path string, zl *zap.Logger) error {
	if path == "" || !st.Fresh() {
		return nil
	}
	snap, err := ingestion.ImportFile(path, ingestion.ImportOptions{})
	if err != nil {
		return err
	}
	if err := st.Replace(ctx, snap); err != nil {
		return err
	}
	zl.Info("Seeded exam", zap.String("file", path), zap.Int("questions", len(snap.Questions)))
	return nil
}

// renderMargin falls back to the default margin for unset config.
func renderMargin(cfg *config.Config) float64 {
	if cfg.Render.MarginMM <= 0 {
		return render.DefaultMarginMM
	}
	return cfg.Render.MarginMM
}
