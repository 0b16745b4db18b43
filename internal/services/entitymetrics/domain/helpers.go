package domain

import "math"

// Metric names written by the analytics pipeline
const (
	MetricThumbsUp   = "ThumbsUp"
	MetricThumbsDown = "ThumbsDown"
	MetricHeart      = "Heart"
	MetricLaugh      = "Laugh"
	MetricCry        = "Cry"
	MetricComment    = "Comment"
	MetricCollect    = "Collection"
	MetricView       = "View"
	MetricDownload   = "Download"
	MetricTip        = "Tip"
)

// MetricOrNull returns nil when the metric was never tracked, as opposed to zero
func MetricOrNull(m Metrics, name string) *int64 {
	if m == nil {
		return nil
	}
	v, ok := m[name]
	if !ok {
		return nil
	}
	return &v
}

// SumMetrics adds the named metrics, nil when m itself is absent
func SumMetrics(m Metrics, names ...string) *int64 {
	if m == nil {
		return nil
	}
	var total int64
	for _, n := range names {
		total += m[n]
	}
	return &total
}

// Rating is a 0..5 score derived from thumbs
type Rating struct {
	Rating      *float64 `json:"rating"`
	RatingCount *int64   `json:"rating_count"`
}

// CalculateRating turns thumbs up/down into a rating rounded to 2 decimals
// both fields are nil when there are no votes
func CalculateRating(m Metrics) Rating {
	up, down := m[MetricThumbsUp], m[MetricThumbsDown]
	count := up + down
	if count <= 0 {
		return Rating{}
	}
	r := math.Round(float64(up)/float64(count)*5*100) / 100
	return Rating{Rating: &r, RatingCount: &count}
}
