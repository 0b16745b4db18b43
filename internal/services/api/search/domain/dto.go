// Package domain holds DTOs for the search index endpoints
package domain

import (
	sidom "syncengine/internal/services/searchindex/domain"
)

// ItemsInput carries pending changes, action defaults to Update
type ItemsInput struct {
	Items []sidom.Item `json:"items" validate:"required,min=1,max=10000,dive"`
}

// ItemsResult acknowledges accepted items
type ItemsResult struct {
	Index    string `json:"index" example:"images"`
	Accepted int    `json:"accepted" example:"2"`
}

// Resolver finds the processor of an index, searchindex module Ports satisfies it
type Resolver interface {
	Processor(index string) (sidom.Port, error)
}
