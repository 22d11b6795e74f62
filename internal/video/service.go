package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/manimate/manimate-api/internal/artifact"
	"github.com/manimate/manimate-api/internal/render"
	"github.com/manimate/manimate-api/internal/script"
)

// ErrNotOwner is returned when a job exists but belongs to a different
// principal. It is never downgraded to a not-found.
var ErrNotOwner = errors.New("video: job does not belong to requester")

// Default deadlines for external calls.
const (
	DefaultGenerateTimeout = 2 * time.Minute
	DefaultRenderTimeout   = 5 * time.Minute
)

// Service orchestrates the animation pipeline for one request:
// generate script → persist draft, and on demand resolve entry point →
// dispatch render → persist artifact key → mint access URLs.
type Service struct {
	repo      Repository
	generator script.Generator
	renderer  render.Dispatcher
	artifacts artifact.Store
	logger    *slog.Logger

	generateTimeout time.Duration
	renderTimeout   time.Duration

	// renders collapses concurrent render requests for the same job into a
	// single worker dispatch.
	renders singleflight.Group
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithGenerateTimeout sets the deadline applied to the model call.
func WithGenerateTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.generateTimeout = d
		}
	}
}

// WithRenderTimeout sets the deadline applied to the render dispatch.
func WithRenderTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.renderTimeout = d
		}
	}
}

// NewService creates the pipeline service.
func NewService(
	repo Repository,
	generator script.Generator,
	renderer render.Dispatcher,
	artifacts artifact.Store,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:            repo,
		generator:       generator,
		renderer:        renderer,
		artifacts:       artifacts,
		logger:          logger,
		generateTimeout: DefaultGenerateTimeout,
		renderTimeout:   DefaultRenderTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate turns a prompt into a script and persists the draft job.
// The script is returned immediately; rendering is a separate,
// user-triggered step.
func (s *Service) Generate(ctx context.Context, ownerID, prompt string) (*Job, error) {
	gctx, cancel := context.WithTimeout(ctx, s.generateTimeout)
	defer cancel()

	source, err := s.generator.Generate(gctx, prompt)
	if err != nil {
		s.logger.Error("script generation failed",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	job := New(ownerID, prompt, source)
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("video: create job: %w", err)
	}

	s.logger.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("owner_id", ownerID),
	)

	return job, nil
}

// Render resolves the job's entry point, dispatches the render, persists the
// artifact key, and mints fresh access URLs. The ownership check happens
// before any external call. Re-rendering an already rendered job is allowed;
// the stored artifact key is replaced by the last successful render's key.
// Concurrent renders of the same job share a single dispatch.
func (s *Service) Render(ctx context.Context, ownerID, jobID string) (artifact.AccessURLs, error) {
	job, err := s.authorize(ctx, ownerID, jobID)
	if err != nil {
		return artifact.AccessURLs{}, err
	}

	v, err, _ := s.renders.Do(job.ID, func() (any, error) {
		return s.renderJob(ctx, job)
	})
	if err != nil {
		return artifact.AccessURLs{}, err
	}
	return v.(artifact.AccessURLs), nil
}

// renderJob runs the resolve → dispatch → persist → sign sequence for an
// already authorized job.
func (s *Service) renderJob(ctx context.Context, job *Job) (artifact.AccessURLs, error) {
	scene, err := script.FindScene(job.Script)
	if err != nil {
		s.logger.Warn("no scene class in script",
			slog.String("job_id", job.ID),
		)
		return artifact.AccessURLs{}, err
	}

	rctx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	key, err := s.renderer.Render(rctx, job.ID, job.Script, scene.Name)
	if err != nil {
		// The artifact key stays untouched, so the job can be resubmitted.
		s.logger.Warn("render failed",
			slog.String("job_id", job.ID),
			slog.String("scene", scene.Name),
			slog.String("error", err.Error()),
		)
		return artifact.AccessURLs{}, err
	}

	if err := s.repo.SetArtifactKey(ctx, job.ID, key); err != nil {
		return artifact.AccessURLs{}, fmt.Errorf("video: persist artifact key: %w", err)
	}

	urls, err := s.artifacts.AccessURLs(ctx, key)
	if err != nil {
		return artifact.AccessURLs{}, err
	}

	s.logger.Info("job rendered",
		slog.String("job_id", job.ID),
		slog.String("scene", scene.Name),
		slog.String("artifact_key", key),
	)

	return urls, nil
}

// Script returns the generated script for a job owned by ownerID.
func (s *Service) Script(ctx context.Context, ownerID, jobID string) (string, error) {
	job, err := s.authorize(ctx, ownerID, jobID)
	if err != nil {
		return "", err
	}
	return job.Script, nil
}

// Prompts returns the owner's jobs oldest first, for history display.
func (s *Service) Prompts(ctx context.Context, ownerID string) ([]*Job, error) {
	return s.repo.ListByOwner(ctx, ownerID, OldestFirst)
}

// Videos returns the owner's jobs newest first.
func (s *Service) Videos(ctx context.Context, ownerID string) ([]*Job, error) {
	return s.repo.ListByOwner(ctx, ownerID, NewestFirst)
}

// ClearHistory removes all of the owner's jobs and best-effort deletes their
// artifacts from storage. Record deletion is the authoritative success
// signal: the storage delete runs detached and its failure is only logged.
func (s *Service) ClearHistory(ctx context.Context, ownerID string) error {
	jobs, err := s.repo.ListByOwner(ctx, ownerID, NewestFirst)
	if err != nil {
		return fmt.Errorf("video: list jobs: %w", err)
	}

	keys := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if job.ArtifactKey != "" {
			keys = append(keys, job.ArtifactKey)
		}
	}

	if err := s.repo.DeleteByOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("video: delete jobs: %w", err)
	}

	if len(keys) > 0 {
		go func(ctx context.Context) {
			if err := s.artifacts.Delete(ctx, keys); err != nil {
				s.logger.Warn("history artifact cleanup failed",
					slog.String("owner_id", ownerID),
					slog.Int("keys", len(keys)),
					slog.String("error", err.Error()),
				)
			}
		}(context.WithoutCancel(ctx))
	}

	s.logger.Info("history cleared",
		slog.String("owner_id", ownerID),
		slog.Int("jobs", len(jobs)),
	)

	return nil
}

// authorize loads a job and verifies ownership. It runs before any external
// call so an unauthorized request performs no generation, render, or
// storage work.
func (s *Service) authorize(ctx context.Context, ownerID, jobID string) (*Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return job, nil
}
