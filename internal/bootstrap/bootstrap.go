// Package bootstrap provides dependency initialization for the animation API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manimate/manimate-api/internal/artifact"
	"github.com/manimate/manimate-api/internal/auth"
	"github.com/manimate/manimate-api/internal/config"
	"github.com/manimate/manimate-api/internal/render"
	"github.com/manimate/manimate-api/internal/script"
	"github.com/manimate/manimate-api/internal/video"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Pipeline *video.Service
	Verifier *auth.Verifier

	pool *pgxpool.Pool
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize the job repository
	repo, pool, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the script generator
	genOpts := []script.GeneratorOption{script.WithModel(cfg.OpenAIModel)}
	if cfg.OpenAIBaseURL != "" {
		genOpts = append(genOpts, script.WithBaseURL(cfg.OpenAIBaseURL))
	}
	generator, err := script.NewOpenAIGenerator(cfg.OpenAIAPIKey, genOpts...)
	if err != nil {
		return nil, fmt.Errorf("create script generator: %w", err)
	}

	// Initialize the render worker client
	renderer, err := render.NewClient(cfg.RendererURL)
	if err != nil {
		return nil, fmt.Errorf("create render client: %w", err)
	}

	// Initialize the artifact store
	store, err := artifact.NewS3Store(artifact.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		URLTTL:          cfg.SignedURLTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create artifact store: %w", err)
	}

	// Initialize the token verifier
	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("create token verifier: %w", err)
	}

	// Initialize the pipeline service
	pipeline := video.NewService(
		repo,
		generator,
		renderer,
		store,
		logger,
		video.WithGenerateTimeout(cfg.GenerateTimeout),
		video.WithRenderTimeout(cfg.RenderTimeout),
	)

	return &Dependencies{
		Pipeline: pipeline,
		Verifier: verifier,
		pool:     pool,
	}, nil
}

// Close releases held resources.
func (d *Dependencies) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// initRepository creates the appropriate repository backend based on
// configuration.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (video.Repository, *pgxpool.Pool, error) {
	if cfg.PostgresEnabled() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create Postgres pool: %w", err)
		}
		repo, err := video.NewPostgresRepository(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("create Postgres repository: %w", err)
		}
		logger.Info("postgres repository configured")
		return repo, pool, nil
	}

	logger.Warn("DATABASE_URL not set, using in-memory repository")
	return video.NewMemoryRepository(), nil, nil
}
