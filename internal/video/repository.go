package video

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("video: job not found")

// Order selects the creation-time ordering for owner-scoped listings.
type Order int

const (
	// OldestFirst orders ascending by creation time, for prompt history.
	OldestFirst Order = iota
	// NewestFirst orders descending by creation time, for video listings.
	NewestFirst
)

// Repository defines the interface for job persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Create persists a new job.
	Create(ctx context.Context, job *Job) error

	// FindByID retrieves a job by its unique identifier.
	// Returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// ListByOwner returns all jobs for ownerID in the given creation-time
	// order.
	ListByOwner(ctx context.Context, ownerID string, order Order) ([]*Job, error)

	// SetArtifactKey records the storage key of a rendered artifact,
	// replacing any previous key. Returns ErrJobNotFound if the job does
	// not exist.
	SetArtifactKey(ctx context.Context, id, key string) error

	// DeleteByOwner removes all jobs for ownerID.
	DeleteByOwner(ctx context.Context, ownerID string) error
}
