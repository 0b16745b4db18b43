package module

import (
	"strings"
	"time"

	"syncengine/internal/platform/config"
	emdom "syncengine/internal/services/entitymetrics/domain"
	"syncengine/internal/services/metrics/rank"
)

// JobOptions configure one entity metric job
type JobOptions struct {
	EntityType string
	Metrics    []string
	// Rank is nil unless CORE_METRICS_<TYPE>_RANK_TABLE is set
	Rank            *rank.Config
	RefreshInterval time.Duration
}

// Options for the metrics module
type Options struct {
	UpdateInterval time.Duration
	Location       *time.Location
	ChunkSize      int
	Concurrency    int
	Jobs           []JobOptions
}

var allMetrics = []string{
	emdom.MetricThumbsUp, emdom.MetricThumbsDown, emdom.MetricHeart, emdom.MetricLaugh, emdom.MetricCry,
	emdom.MetricComment, emdom.MetricCollect, emdom.MetricView, emdom.MetricDownload, emdom.MetricTip,
}

// FromConfig fills options from environment
// CORE_METRICS_JOBS (default "Image") lists entity types aggregated into "<Type>Metric"
// CORE_METRICS_UPDATE_INTERVAL (default 1m) gates each job's aggregation
// CORE_METRICS_LOCATION (default UTC) decides when a new day starts
// CORE_METRICS_<TYPE>_METRICS (default all) picks the tracked metrics
// CORE_METRICS_<TYPE>_RANK_TABLE enables rank refresh from "<table>_Live"
// CORE_METRICS_<TYPE>_RANK_PK (default "<type>Id") and _RANK_INDEXES ("name:col+col,...")
// CORE_METRICS_<TYPE>_RANK_REFRESH_INTERVAL (default 1h)
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_METRICS_")

	loc, err := time.LoadLocation(c.MayString("LOCATION", "UTC"))
	if err != nil {
		panic("CORE_METRICS_LOCATION: " + err.Error())
	}

	o := Options{
		UpdateInterval: c.MayDuration("UPDATE_INTERVAL", time.Minute),
		Location:       loc,
		ChunkSize:      c.MayInt("CHUNK_SIZE", 500),
		Concurrency:    c.MayInt("CONCURRENCY", 2),
	}
	for _, typ := range c.MayCSV("JOBS", []string{"Image"}) {
		j := c.Prefix(strings.ToUpper(typ) + "_")
		job := JobOptions{
			EntityType:      typ,
			Metrics:         j.MayCSV("METRICS", allMetrics),
			RefreshInterval: j.MayDuration("RANK_REFRESH_INTERVAL", time.Hour),
		}
		if table := j.MayString("RANK_TABLE", ""); table != "" {
			job.Rank = &rank.Config{
				Table:      table,
				PrimaryKey: j.MayCSV("RANK_PK", []string{lowerFirst(typ) + "Id"}),
				Indexes:    parseIndexes(j.MayCSV("RANK_INDEXES", nil)),
			}
		}
		o.Jobs = append(o.Jobs, job)
	}
	return o
}

// parseIndexes reads "name:col+col" entries, a bare column names its own index
func parseIndexes(specs []string) []rank.Index {
	var out []rank.Index
	for _, s := range specs {
		name, cols, ok := strings.Cut(s, ":")
		if !ok {
			cols = name
		}
		out = append(out, rank.Index{Name: name, Columns: strings.Split(cols, "+")})
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
