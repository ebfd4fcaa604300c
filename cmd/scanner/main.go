package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/config"
	"market-scanner/internal/api"
	"market-scanner/internal/auth"
	"market-scanner/internal/dedup"
	"market-scanner/internal/events"
	"market-scanner/internal/logging"
	"market-scanner/internal/market"
	"market-scanner/internal/notification"
	"market-scanner/internal/patterns"
	"market-scanner/internal/pipeline"
	"market-scanner/internal/storage"
)

func main() {
	generateConfig := flag.Bool("generate-config", false, "write a sample config.json and exit")
	issueToken := flag.Bool("issue-token", false, "mint an admin token for the scan endpoint and exit")
	flag.Parse()

	bootLogger := zerolog.New(os.Stderr)

	if *generateConfig {
		if err := config.GenerateSample("config.json"); err != nil {
			bootLogger.Fatal().Err(err).Msg("sample config generation failed")
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	if *issueToken {
		if cfg.ServerConfig.JWTSecret == "" {
			bootLogger.Fatal().Msg("server.jwt_secret is empty, the scan endpoint is open and needs no token")
		}
		jm := auth.NewJWTManager(cfg.ServerConfig.JWTSecret, 24*time.Hour)
		token, err := jm.GenerateToken("operator", "admin")
		if err != nil {
			bootLogger.Fatal().Err(err).Msg("token generation failed")
		}
		fmt.Println(token)
		return
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logger.Info().Msg("market scanner starting")

	cooldownWindow := time.Duration(cfg.CooldownConfig.Hours) * time.Hour

	// Cooldown store: Redis when enabled, Postgres as second choice,
	// in-memory otherwise.
	var cooldownStore dedup.Store = dedup.NewMemoryStore()

	var db *storage.DB
	var repo *storage.Repository
	if cfg.PostgresConfig.Enabled {
		db, err = storage.NewDB(storage.PostgresConfig{
			Host:     cfg.PostgresConfig.Host,
			Port:     cfg.PostgresConfig.Port,
			User:     cfg.PostgresConfig.User,
			Password: cfg.PostgresConfig.Password,
			Database: cfg.PostgresConfig.Database,
			SSLMode:  cfg.PostgresConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Migrate(migrateCtx); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("database migration failed")
		}
		cancel()

		repo = storage.NewRepository(db)
		cooldownStore = storage.NewPostgresCooldownStore(db)
	}

	if cfg.RedisConfig.Enabled {
		redisStore, err := storage.NewRedisCooldownStore(storage.RedisConfig{
			Enabled:  cfg.RedisConfig.Enabled,
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		}, cooldownWindow)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, falling back to alternate cooldown store")
		} else {
			defer redisStore.Close()
			cooldownStore = redisStore
		}
	}

	manager := dedup.NewManager(cooldownStore, cooldownWindow, cfg.CooldownConfig.FailClosed, logger)

	pipelineCfg := pipeline.Config{
		Patterns:         cfg.ScanConfig.Patterns,
		MinConfidence:    cfg.ScanConfig.MinConfidence,
		MinRiskReward:    cfg.ScanConfig.MinRiskReward,
		LastCandleClosed: cfg.ScanConfig.LastCandleClosed,
		Detection:        detectionConfig(cfg.DetectionConfig),
	}
	p := pipeline.New(pipelineCfg, manager, logger)

	var notifier pipeline.Notifier
	if cfg.NotificationConfig.Enabled {
		nm := notification.NewManager()
		nm.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
			BotToken: cfg.NotificationConfig.Telegram.BotToken,
			ChatID:   cfg.NotificationConfig.Telegram.ChatID,
			Enabled:  cfg.NotificationConfig.Telegram.Enabled,
		}))
		nm.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
			WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
			Enabled:    cfg.NotificationConfig.Discord.Enabled,
		}))
		notifier = notification.NewAlertNotifier(nm)
	}

	client := market.NewClient(cfg.MarketConfig.BaseURL)

	var units []pipeline.Unit
	for _, instrument := range cfg.ScanConfig.Instruments {
		for _, timeframe := range cfg.ScanConfig.Timeframes {
			units = append(units, pipeline.Unit{Instrument: instrument, Timeframe: timeframe})
		}
	}

	var alertStore pipeline.AlertStore
	if repo != nil {
		alertStore = repo
	}

	bus := events.NewBus()

	engine := pipeline.NewEngine(p, client, alertStore, notifier, bus, pipeline.EngineConfig{
		Units:        units,
		ScanInterval: time.Duration(cfg.ScanConfig.IntervalSeconds) * time.Second,
		WorkerCount:  cfg.ScanConfig.WorkerCount,
		CandleLimit:  cfg.MarketConfig.CandleLimit,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional websocket stream: closed candles trigger an immediate
	// scan of their unit instead of waiting for the next ticker cycle.
	if cfg.MarketConfig.StreamOn {
		var subs []market.StreamSubscription
		for _, u := range units {
			subs = append(subs, market.StreamSubscription{Symbol: u.Instrument, Timeframe: u.Timeframe})
		}
		stream := market.NewStream(cfg.MarketConfig.StreamURL, subs, func(symbol, timeframe string, candle market.Candle) {
			bus.PublishCandleClosed(symbol, timeframe, candle.Close)
			alerts := engine.ScanUnit(ctx, pipeline.Unit{Instrument: symbol, Timeframe: timeframe})
			if len(alerts) > 0 {
				logger.Info().
					Str("instrument", symbol).
					Str("timeframe", timeframe).
					Int("alerts", len(alerts)).
					Msg("stream-triggered detections")
			}
		}, logger)
		go stream.Run(ctx)
	}

	engine.Start()
	defer engine.Stop()

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		var reader api.AlertReader
		if repo != nil {
			reader = repo
		}
		server = api.NewServer(api.ServerConfig{
			Host:           cfg.ServerConfig.Host,
			Port:           cfg.ServerConfig.Port,
			ProductionMode: cfg.ServerConfig.ProductionMode,
			JWTSecret:      cfg.ServerConfig.JWTSecret,
		}, engine, reader, bus, logger)

		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("api server failed")
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api shutdown failed")
		}
	}
}

// detectionConfig maps file-level overrides onto the full detector
// configuration, leaving untouched values at their defaults.
func detectionConfig(cfg config.DetectionConfig) patterns.Config {
	out := patterns.DefaultConfig()
	if cfg.SwingWindow > 0 {
		out.Indicators.SwingWindow = cfg.SwingWindow
	}
	if cfg.PeakTolerance > 0 {
		out.PeakTolerance = cfg.PeakTolerance
	}
	if cfg.MinRetracement > 0 {
		out.MinRetracement = cfg.MinRetracement
	}
	if cfg.ShoulderTolerance > 0 {
		out.ShoulderTolerance = cfg.ShoulderTolerance
	}
	if cfg.VolumeMultiplier > 0 {
		out.BreakoutVolumeMultiplier = cfg.VolumeMultiplier
		out.CrossVolumeMultiplier = cfg.VolumeMultiplier
	}
	return out
}
