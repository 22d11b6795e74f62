// Package server provides the HTTP surface for the animation API.
// It includes handlers, middleware, routes, and DTOs separated from domain
// types. JSON field names follow the contract consumed by the web client.
package server

import "time"

// GenerateRequest is the HTTP request body for generating a script.
type GenerateRequest struct {
	// Prompt is the free-text animation description.
	Prompt string `json:"prompt" validate:"required,min=1,max=4000"`
}

// GenerateResponse is the HTTP response after generating a script.
type GenerateResponse struct {
	Success bool   `json:"success"`
	Script  string `json:"script"`
	VideoID string `json:"videoId"`
}

// CompileRequest is the HTTP request body for rendering a job's script.
type CompileRequest struct {
	VideoID string `json:"videoId" validate:"required"`
}

// CompileResponse carries the access URLs of the rendered artifact.
type CompileResponse struct {
	Success bool `json:"success"`
	// VideoURL is the time-limited streaming URL.
	VideoURL string `json:"videoUrl"`
	// DownloadURL is the time-limited forced-download URL.
	DownloadURL string `json:"downloadUrl"`
}

// VideoItem is one entry in a video or prompt listing.
type VideoItem struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
}

// ScriptResponse is the HTTP response for fetching a job's script.
type ScriptResponse struct {
	Success bool   `json:"success"`
	Script  string `json:"script"`
}

// ClearHistoryResponse is the HTTP response after clearing history.
type ClearHistoryResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
