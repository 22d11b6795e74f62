package video

import (
	"context"
	"slices"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses an insertion-ordered slice with RWMutex for thread-safe access.
// Suitable for development and testing; production runs on Postgres.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs []*Job
	byID map[string]*Job
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]*Job),
	}
}

// Create persists a job to the in-memory storage.
// Stores a clone to avoid external mutations.
func (r *MemoryRepository) Create(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := job.Clone()
	r.jobs = append(r.jobs, c)
	r.byID[c.ID] = c
	return nil
}

// FindByID retrieves a job by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// ListByOwner returns the owner's jobs ordered by creation time.
// Jobs created at the same instant keep their insertion order.
func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string, order Order) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Job, 0)
	for _, job := range r.jobs {
		if job.OwnerID == ownerID {
			result = append(result, job.Clone())
		}
	}

	slices.SortStableFunc(result, func(a, b *Job) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if order == NewestFirst {
		slices.Reverse(result)
	}

	return result, nil
}

// SetArtifactKey records the storage key of a rendered artifact.
func (r *MemoryRepository) SetArtifactKey(_ context.Context, id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[id]
	if !ok {
		return ErrJobNotFound
	}
	job.ArtifactKey = key
	return nil
}

// DeleteByOwner removes all jobs belonging to ownerID.
func (r *MemoryRepository) DeleteByOwner(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.jobs[:0]
	for _, job := range r.jobs {
		if job.OwnerID == ownerID {
			delete(r.byID, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	r.jobs = kept
	return nil
}
