// Package id provides unique identifier generation for video jobs.
package id

import "github.com/google/uuid"

// Generate creates a new opaque job ID. IDs are globally unique and
// never reused.
func Generate() string {
	return uuid.NewString()
}
