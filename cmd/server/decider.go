package main

import (
	"github.com/rs/zerolog"

	"github.com/deskroute/deskroute/internal/agent"
	"github.com/deskroute/deskroute/internal/config"
	"github.com/deskroute/deskroute/internal/engine"
)

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
