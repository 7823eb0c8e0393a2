package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"auto_tweet_agent/agent"
	"auto_tweet_agent/config"
	"auto_tweet_agent/generator"
	"auto_tweet_agent/logging"
	"auto_tweet_agent/publisher"
	"auto_tweet_agent/status"
)

const serviceName = "auto-tweet-agent"

type app struct {
	cfg      config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	store    status.Store
	orch     *agent.Orchestrator
}

func buildApp(ctx context.Context, path string, debug bool) (*app, error) {
	bootLogger := logging.NewLoggerWithService(serviceName, "info")
	config.LoadEnv(bootLogger)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logger := logging.NewLoggerWithService(serviceName, level)

	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	gen, err := generator.NewAgent(llm, cfg.LLM.Model, cfg.Agent.Topics)
	if err != nil {
		return nil, err
	}

	store, err := status.Open(ctx, cfg.Status, logger)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	orch, err := agent.New(gen, buildPublisher(cfg, logger), store, logger, agent.Options{
		GenerateTimeout: cfg.Agent.GenerateTimeout(),
		PublishTimeout:  cfg.Agent.PublishTimeout(),
		Metrics:         agent.NewMetrics(registry),
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.WithFields(logging.Fields{
		"llm_provider":   cfg.LLM.Provider,
		"publisher":      cfg.Twitter.Provider,
		"status_backend": cfg.Status.Backend,
	}).Debug("Agent configured")

	return &app{cfg: cfg, logger: logger, registry: registry, store: store, orch: orch}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close status store")
	}
}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key in config")
	}
	settings := &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	}
	switch cfg.LLM.Provider {
	case generator.ProviderMock:
		return generator.MockLLM{}, nil
	case generator.ProviderOpenAI, generator.ProviderDeepSeek:
		return generator.NewOpenAILLMFromConfig(settings)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

func buildPublisher(cfg config.Config, logger logging.Logger) agent.Publisher {
	if cfg.Twitter.Provider == config.ProviderDryRun {
		return publisher.NewDryRun(logger)
	}
	return publisher.New(publisher.Config{
		AccessToken:     cfg.Twitter.AccessToken,
		BaseURL:         cfg.Twitter.BaseURL,
		MaxPostsPerHour: cfg.Twitter.MaxPostsPerHour,
		Timeout:         cfg.Twitter.Timeout(),
	}, nil, logger)
}
