// main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/codepics/codepics/internal/cafe"
	"github.com/codepics/codepics/internal/config"
	"github.com/codepics/codepics/internal/handlers"
	"github.com/codepics/codepics/internal/harness"
	"github.com/codepics/codepics/internal/images"
	"github.com/codepics/codepics/internal/monitor"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetLevel(cfg.ParseLogLevel())

	library, err := images.FindCollections(cfg.CardsDir, logger)
	if err != nil {
		logger.Fatalf("failed to scan card collections under %s: %v", cfg.CardsDir, err)
	}
	if len(library.Names()) == 0 {
		logger.Warnf("No usable card collections under %s; start_game will fail until some exist", cfg.CardsDir)
	}

	metrics := monitor.NewMetrics("codepics")
	hub := handlers.NewHub(logger)
	c := cafe.New(logger, library, hub, metrics)

	var hn *harness.Harness
	if cfg.Debug {
		hn = harness.New(logger, c)
		logger.Warn("Debug harness enabled; do not run this in production")
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handlers.NewRouter(logger, c, hub, metrics, hn),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	logger.Infof("Running on %s", cfg.Addr)
	select {
	case err := <-errc:
		logger.Errorf("server exited: %v", err)
	case sig := <-sigs:
		logger.Infof("Received %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorf("shutdown error: %v", err)
		}
	}
}
