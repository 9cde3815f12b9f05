package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"securerag/internal/config"
	"securerag/internal/domain"
	"securerag/internal/embedding/hashing"
	embopenai "securerag/internal/embedding/openai"
	"securerag/internal/generation/extractive"
	genopenai "securerag/internal/generation/openai"
)

func newEmbedder(cfg config.EmbedderConfig, log *zap.Logger) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing":
		emb := hashing.NewEmbedder(cfg.Hashing.Dimension)
		log.Info("embedder ready", zap.String("type", cfg.Type), zap.Int("dimension", emb.Dimension()))
		return emb, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrInvalidConfig)
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		log.Info("embedder ready", zap.String("type", cfg.Type), zap.String("name", client.Name()))
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfig, cfg.Type)
	}
}

func newGenerator(cfg config.GeneratorConfig, log *zap.Logger) (domain.Generator, error) {
	switch cfg.Type {
	case "extractive":
		log.Info("generator ready", zap.String("type", cfg.Type), zap.Int("max_sentences", cfg.Extractive.MaxSentences))
		return extractive.NewGenerator(cfg.Extractive.MaxSentences), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai generator config missing", domain.ErrInvalidConfig)
		}
		client, err := genopenai.NewClient(genopenai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Timeout:     time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		log.Info("generator ready",
			zap.String("type", cfg.Type),
			zap.String("model", client.Model()),
			zap.Float32("temperature", cfg.OpenAI.Temperature))
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown generator %q", domain.ErrInvalidConfig, cfg.Type)
	}
}
