// Package domain holds DTOs for the entity metrics endpoints
package domain

import (
	"strconv"
	"strings"

	perr "syncengine/internal/platform/errors"
	emdom "syncengine/internal/services/entitymetrics/domain"
)

// MaxIDs caps ids per request
const MaxIDs = 1000

// IDsInput lists entity ids
type IDsInput struct {
	IDs []int64 `json:"ids" validate:"required,min=1,max=1000,dive,gt=0" example:"1,2"`
}

// FetchResult maps entity id to its metric bundle
type FetchResult struct {
	Type    string        `json:"type" example:"Image"`
	Bundles map[int64]any `json:"bundles"`
}

// Ack acknowledges a bust or refresh
type Ack struct {
	Type  string `json:"type" example:"Image"`
	Count int    `json:"count" example:"2"`
}

// Resolver finds a cache by entity type, entitymetrics module Ports satisfies it
type Resolver interface {
	Cache(entityType string) (emdom.Port, bool)
}

// ParseIDs reads "1,2,3" into ids
func ParseIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, perr.Newf(perr.ErrorCodeValidation, "ids is required")
	}
	parts := strings.Split(raw, ",")
	if len(parts) > MaxIDs {
		return nil, perr.Newf(perr.ErrorCodeValidation, "ids must be at most %d", MaxIDs)
	}
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, perr.Newf(perr.ErrorCodeValidation, "ids must be a comma-separated list of integers")
		}
		out = append(out, id)
	}
	return out, nil
}
