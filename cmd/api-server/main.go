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

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/api"
	"github.com/wildwatch/wildwatch-server/internal/auth"
	"github.com/wildwatch/wildwatch-server/internal/cache"
	"github.com/wildwatch/wildwatch-server/internal/config"
	"github.com/wildwatch/wildwatch-server/internal/dispatch"
	"github.com/wildwatch/wildwatch-server/internal/fallback"
	"github.com/wildwatch/wildwatch-server/internal/ingest"
	"github.com/wildwatch/wildwatch-server/internal/media"
	"github.com/wildwatch/wildwatch-server/internal/resource"
	"github.com/wildwatch/wildwatch-server/internal/storage"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "configs/config.yaml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Warn().Err(err).Str("file", configFile).Msg("Failed to load configuration, using defaults")
		cfg = config.Default()
	}
	setupLogging(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store, or fallback data when credentials are absent
	store, err := storage.Open(cfg.Store.URL, cfg.Store.Key, cfg.Store.Pool(), cfg.Store.Breaker)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()
	data := fallback.New()

	// Analytics cache
	var kv cache.KVStore
	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		kv = cache.NewRedisKVStore(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Analytics cache backed by Redis")
	} else {
		kv = cache.NewMemoryKVStore()
	}

	// Photo storage
	var blobs media.BlobStore
	if cfg.Uploads.GCS.Bucket != "" {
		gcs, err := media.NewGCSStore(ctx, cfg.Uploads.GCS.Bucket, cfg.Uploads.GCS.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open photo bucket")
		}
		defer gcs.Close()
		blobs = gcs
	} else {
		if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.Uploads.Dir).Msg("Failed to create uploads directory")
		}
		blobs = media.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.PublicPrefix)
	}

	devices := resource.NewDeviceService(store, data)
	alerts := resource.NewAlertService(store, data)
	analytics := resource.NewAnalyticsService(store, cache.NewJSON(kv, "wildwatch:analytics:", cfg.Redis.AnalyticsTTL))

	var wg sync.WaitGroup
	var publisher dispatch.Publisher

	// Optional: NATS for dispatch announcements and device status
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name(cfg.NATS.ClientID),
			nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("Reconnected to NATS")
			}),
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without NATS support")
		} else {
			defer nc.Close()
			publisher = nc
			log.Info().Msg("Connected to NATS")

			subscriber := ingest.NewNATSSubscriber(nc, cfg.NATS.SubjectPrefix, ingest.NewHandler(devices))
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := subscriber.Start(ctx); err != nil {
					log.Error().Err(err).Msg("NATS subscriber stopped")
				}
			}()
		}
	} else {
		log.Info().Msg("NATS not configured, dispatches are not announced")
	}

	// Optional: MQTT device status
	if cfg.MQTT.Broker != "" {
		subscriber := ingest.NewMQTTSubscriber(ingest.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		}, ingest.NewHandler(devices))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := subscriber.Start(ctx); err != nil {
				log.Error().Err(err).Msg("MQTT subscriber stopped")
			}
		}()
	}

	uploadsDir := ""
	if cfg.Uploads.GCS.Bucket == "" {
		uploadsDir = cfg.Uploads.Dir
	}

	apiServer := api.NewRESTServer(cfg, api.Services{
		Devices:    devices,
		Alerts:     alerts,
		Analytics:  analytics,
		Photos:     media.NewIngestor(blobs, cfg.Uploads.MaxBytes),
		Dispatcher: dispatch.NewDispatcher(publisher, alerts, cfg.NATS.SubjectPrefix),
		Sessions:   auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer),
		UploadsDir: uploadsDir,
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.ListenAndServe(cfg.API.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("REST API server failed")
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
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	wg.Wait()

	log.Info().Msg("API server stopped")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
