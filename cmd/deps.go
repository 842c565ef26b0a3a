package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/tagwing/birdtag/internal/blobstore"
	"github.com/tagwing/birdtag/internal/config"
	"github.com/tagwing/birdtag/internal/detect"
	"github.com/tagwing/birdtag/internal/tagstore"
	"github.com/tagwing/birdtag/internal/tagstore/mysql"
	"github.com/tagwing/birdtag/internal/tagstore/postgres"
)

// buildStore connects to the tag store backend selected by STORE_BACKEND.
func buildStore(cfg *config.Config) (tagstore.Store, error) {
	if cfg.Store.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	switch cfg.Store.Backend {
	case "postgres":
		fmt.Println("Connecting to PostgreSQL database...")
		store, err := postgres.Initialize(&cfg.Store.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return store, nil
	case "mysql":
		fmt.Println("Connecting to MySQL database...")
		store, err := mysql.Initialize(&cfg.Store.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MySQL: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// buildBlobStore connects to the configured object storage.
func buildBlobStore(cfg *config.Config) (blobstore.Store, error) {
	if cfg.Blob.Endpoint == "" || cfg.Blob.Bucket == "" {
		return nil, errors.New("OSS_ENDPOINT and OSS_BUCKET environment variables are required")
	}
	return blobstore.NewAliyunStore(cfg.Blob)
}

// buildDetector creates the species detector selected by DETECTOR_PROVIDER.
func buildDetector(ctx context.Context, cfg *config.Config) (detect.Detector, error) {
	switch cfg.Detector.Provider {
	case "openai":
		if cfg.Detector.OpenAIToken == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		return detect.NewOpenAIDetector(cfg.Detector.OpenAIToken, cfg.Detector.MinConfidence), nil
	case "gemini":
		if cfg.Detector.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		return detect.NewGeminiDetector(ctx, cfg.Detector.GeminiAPIKey, cfg.Detector.MinConfidence)
	case "none", "":
		return detect.Disabled{}, nil
	}
	return nil, fmt.Errorf("unknown detector provider %q", cfg.Detector.Provider)
}
