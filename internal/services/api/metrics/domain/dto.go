// Package domain holds DTOs for the metric queue endpoints
package domain

import (
	mdom "syncengine/internal/services/metrics/domain"
)

// QueueInput lists entity ids to re-aggregate on the next run
type QueueInput struct {
	IDs []int64 `json:"ids" validate:"required,min=1,max=10000,dive,gt=0" example:"1,2,3"`
}

// QueueResult acknowledges a queued request
type QueueResult struct {
	Job    string `json:"job" example:"Image"`
	Queued int    `json:"queued" example:"3"`
}

// Resolver finds the processor of a job, metrics module Ports satisfies it
type Resolver interface {
	Processor(job string) (mdom.Port, error)
}
