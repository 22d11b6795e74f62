// Package video provides the VideoJob record, its persistence ports, and the
// animation pipeline service that orchestrates script generation, rendering,
// and artifact lifecycle for one prompt submission.
package video

import (
	"time"

	"github.com/manimate/manimate-api/internal/video/id"
)

// Job is the unit of work, one per prompt submission.
type Job struct {
	// ID is the opaque unique identifier, assigned at creation.
	ID string
	// OwnerID identifies the requesting principal. Every query and
	// mutation is scoped to it.
	OwnerID string
	// Prompt is the original free-text input, immutable once set.
	Prompt string
	// Script is the generated source text. It is set once at creation and
	// read by the entry-point and render steps, never rewritten.
	Script string
	// ArtifactKey is empty until a successful render, then holds the
	// storage key of the produced video. A failed render leaves it
	// untouched so the job can be resubmitted.
	ArtifactKey string
	// CreatedAt is the creation timestamp, used for both oldest-first
	// (prompt history) and newest-first (video list) ordering.
	CreatedAt time.Time
}

// New creates a draft job for ownerID with a generated ID and empty
// artifact key.
func New(ownerID, prompt, script string) *Job {
	return &Job{
		ID:        id.Generate(),
		OwnerID:   ownerID,
		Prompt:    prompt,
		Script:    script,
		CreatedAt: time.Now(),
	}
}

// Rendered reports whether the job holds a rendered artifact.
func (j *Job) Rendered() bool {
	return j.ArtifactKey != ""
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	c := *j
	return &c
}
