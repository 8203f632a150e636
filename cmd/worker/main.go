// The worker consumes queued inbound events and runs them through the
// processing pipeline. Webhook channels enqueue; workers do the work.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskroute/deskroute/internal/agent"
	"github.com/deskroute/deskroute/internal/config"
	"github.com/deskroute/deskroute/internal/engine"
	"github.com/deskroute/deskroute/internal/kafka"
	"github.com/deskroute/deskroute/internal/pipeline"
	"github.com/deskroute/deskroute/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the primary store
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dataStore = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
	}
	defer dataStore.Close()

	// Initialize Redis store
	var states pipeline.StateStore
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		states = redisStore
		logger.Info().Msg("connected to Redis")
	} else {
		states = store.NewMemoryStateStore()
		logger.Warn().Msg("REDIS_URL not set, using in-process state store")
	}

	// Event transport
	topics := kafka.DefaultTopics()
	producer := kafka.NewProducer(cfg.KafkaBrokers, topics)
	defer producer.Close()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, topics.Inbound, cfg.ConsumerGroup)
	defer consumer.Close()

	processor := pipeline.NewProcessor(dataStore, states, newDecider(cfg, logger), producer, logger)

	logger.Info().
		Str("topic", topics.Inbound).
		Str("group", cfg.ConsumerGroup).
		Str("engine_mode", cfg.EngineMode).
		Msg("starting deskroute worker")

	if err := consumer.Run(ctx, func(ctx context.Context, _, value []byte) error {
		return processor.Process(ctx, value)
	}); err != nil {
		logger.Fatal().Err(err).Msg("consumer stopped")
	}

	logger.Info().Msg("worker stopped")
}

// newDecider builds the decision provider selected by ENGINE_MODE.
func newDecider(cfg *config.Config, logger zerolog.Logger) engine.DecisionProvider {
	rules, err := engine.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("rules load failed")
	}

	switch cfg.EngineMode {
	case "naive":
		return engine.NewNaive(rules)
	case "agent":
		return agent.NewClient(cfg.AgentURL, engine.New(rules), logger)
	default:
		return engine.New(rules)
	}
}
