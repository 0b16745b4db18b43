// Package bundles holds the read shapes served for each entity type
package bundles

import (
	emdom "syncengine/internal/services/entitymetrics/domain"
)

// Reactions is the reaction block shared by most bundles
type Reactions struct {
	ThumbsUp   *int64 `json:"thumbs_up"`
	ThumbsDown *int64 `json:"thumbs_down"`
	Heart      *int64 `json:"heart"`
	Laugh      *int64 `json:"laugh"`
	Cry        *int64 `json:"cry"`
	Total      *int64 `json:"total"`
}

func reactions(m emdom.Metrics) Reactions {
	return Reactions{
		ThumbsUp:   emdom.MetricOrNull(m, emdom.MetricThumbsUp),
		ThumbsDown: emdom.MetricOrNull(m, emdom.MetricThumbsDown),
		Heart:      emdom.MetricOrNull(m, emdom.MetricHeart),
		Laugh:      emdom.MetricOrNull(m, emdom.MetricLaugh),
		Cry:        emdom.MetricOrNull(m, emdom.MetricCry),
		Total: emdom.SumMetrics(m,
			emdom.MetricThumbsUp, emdom.MetricThumbsDown, emdom.MetricHeart, emdom.MetricLaugh, emdom.MetricCry),
	}
}

// Image is the bundle for images
type Image struct {
	ID          int64     `json:"id"`
	Reactions   Reactions `json:"reactions"`
	Comments    *int64    `json:"comments"`
	Collected   *int64    `json:"collected"`
	Views       *int64    `json:"views"`
	TippedTotal *int64    `json:"tipped_total"`
}

// ImageFrom builds an Image bundle, nil counters mean never tracked
func ImageFrom(id int64, m emdom.Metrics, _ emdom.Extra) Image {
	return Image{
		ID:          id,
		Reactions:   reactions(m),
		Comments:    emdom.MetricOrNull(m, emdom.MetricComment),
		Collected:   emdom.MetricOrNull(m, emdom.MetricCollect),
		Views:       emdom.MetricOrNull(m, emdom.MetricView),
		TippedTotal: emdom.MetricOrNull(m, emdom.MetricTip),
	}
}

// Model is the bundle for models, rated by thumbs
type Model struct {
	ID        int64 `json:"id"`
	Downloads int64 `json:"downloads"`
	Comments  int64 `json:"comments"`
	Collected int64 `json:"collected"`
	emdom.Rating
	// Status comes from the extra fetcher when one is configured
	Status string `json:"status,omitempty"`
}

// ModelFrom builds a Model bundle, counters default to zero
func ModelFrom(id int64, m emdom.Metrics, extra emdom.Extra) Model {
	b := Model{
		ID:        id,
		Downloads: m[emdom.MetricDownload],
		Comments:  m[emdom.MetricComment],
		Collected: m[emdom.MetricCollect],
		Rating:    emdom.CalculateRating(m),
	}
	if s, ok := extra["status"].(string); ok {
		b.Status = s
	}
	return b
}

// Generic serves any entity type as a raw metric map
type Generic struct {
	ID      int64         `json:"id"`
	Metrics emdom.Metrics `json:"metrics"`
}

// GenericFrom never returns a nil map so clients can tell populated from broken
func GenericFrom(id int64, m emdom.Metrics, _ emdom.Extra) Generic {
	if m == nil {
		m = emdom.Metrics{}
	}
	return Generic{ID: id, Metrics: m}
}
