package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/client"
	"github.com/wildwatch/wildwatch-server/internal/config"
	"github.com/wildwatch/wildwatch-server/internal/dashboard"
	"github.com/wildwatch/wildwatch-server/internal/mapview"
	"github.com/wildwatch/wildwatch-server/internal/settings"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "configs/config.yaml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Warn().Err(err).Str("file", configFile).Msg("Failed to load configuration, using defaults")
		cfg = config.Default()
	}

	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	store, err := settings.Open(cfg.Dashboard.SettingsDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Dashboard.SettingsDir).Msg("Failed to open settings store")
	}
	defer store.Close()

	hub := mapview.NewHub(cfg.API.CORSOrigins)
	agent := dashboard.NewAgent(client.New(cfg.Dashboard.APIURL, client.DefaultTimeout), hub, store, dashboard.Options{
		PollInterval:  cfg.Dashboard.PollInterval,
		FallbackDelay: cfg.Dashboard.RespondFallbackDelay,
	})
	server := dashboard.NewServer(agent, store, hub.ServeWS, cfg.Dashboard.Production)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("api_url", cfg.Dashboard.APIURL).Msg("Starting dashboard agent")
		if err := agent.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Dashboard agent stopped")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(cfg.Dashboard.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Dashboard server failed")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown dashboard server gracefully")
	}

	wg.Wait()

	log.Info().Msg("Dashboard stopped")
}
