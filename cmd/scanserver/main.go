// Command scanserver runs the options payoff and combination-scanning API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halpert/bigtuna/internal/api"
	"github.com/halpert/bigtuna/internal/catalog"
	"github.com/halpert/bigtuna/internal/chain"
	"github.com/halpert/bigtuna/internal/config"
	"github.com/halpert/bigtuna/internal/payoff"
	"github.com/halpert/bigtuna/internal/retry"
	"github.com/halpert/bigtuna/internal/scanner"
	"github.com/halpert/bigtuna/internal/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	logger.Infof("Starting scan server in %s mode", cfg.Environment.Mode)

	provider := buildProvider(cfg, logger)

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		logger.Fatalf("Failed to open storage at %s: %v", cfg.Storage.Path, err)
	}

	engine := payoff.NewEngine(cfg.Engine.RiskFreeRate,
		payoff.WithCurve(cfg.Engine.CurvePoints, 0, 0))
	cat := catalog.NewCatalog()
	scan := scanner.New(engine, cat, logger, scanner.Config{
		TopN:           cfg.Scan.TopN,
		BodyWindow:     cfg.Scan.BodyWindow,
		MaxWingSteps:   cfg.Scan.MaxWingSteps,
		MaxEvaluations: cfg.Scan.MaxEvaluations,
		Parallelism:    cfg.Scan.Parallelism,
		RiskFreeRate:   cfg.Engine.RiskFreeRate,
		DefaultIV:      cfg.Engine.DefaultVol,
	})

	server := api.NewServer(api.Config{
		Listen:       cfg.Server.Listen,
		AuthToken:    cfg.Server.AuthToken,
		Symbol:       cfg.Chain.Symbol,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}, engine, cat, scan, provider, store, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	if err := store.Save(); err != nil {
		logger.WithError(err).Error("Final storage flush failed")
	}

	logger.Info("Server stopped")
}

// buildProvider assembles the chain provider stack: the Tradier client
// wrapped with retries and a circuit breaker, or the deterministic
// synthetic provider for offline use.
func buildProvider(cfg *config.Config, logger *logrus.Logger) chain.Provider {
	if cfg.IsStaticChain() {
		logger.Info("Using static synthetic chain provider")
		return chain.NewStaticProvider(cfg.Chain.StaticSpot, cfg.Engine.DefaultVol,
			upcomingFridays(4))
	}

	tradier := chain.NewTradierProvider(cfg.Chain.APIKey, cfg.Chain.Sandbox)
	retried := retry.NewProvider(tradier, logger)
	return chain.NewBreakerProvider(retried)
}

// upcomingFridays lists the next n weekly expirations as YYYY-MM-DD.
func upcomingFridays(n int) []string {
	out := make([]string, 0, n)
	day := time.Now()
	for len(out) < n {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Friday {
			out = append(out, day.Format("2006-01-02"))
		}
	}
	return out
}
