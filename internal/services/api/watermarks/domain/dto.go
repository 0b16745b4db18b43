// Package domain holds DTOs for the watermark admin endpoints
package domain

import "time"

// ForceInput overwrites a job watermark, it may move backwards
type ForceInput struct {
	LastRunAt time.Time `json:"last_run_at" validate:"required" example:"2025-09-03T13:00:00Z"`
}

// JobAck names the job an admin call touched
type JobAck struct {
	JobKey string `json:"job_key" example:"search:images"`
}
