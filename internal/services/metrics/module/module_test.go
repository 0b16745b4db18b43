package module

import (
	"context"
	"testing"
	"time"

	"syncengine/internal/modkit"
	"syncengine/internal/platform/config"
	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/testkit/sqlfake"
	emdom "syncengine/internal/services/entitymetrics/domain"
)

func TestFromConfig(t *testing.T) {
	t.Setenv("CORE_METRICS_JOBS", "Image,Model")
	t.Setenv("CORE_METRICS_UPDATE_INTERVAL", "5m")
	t.Setenv("CORE_METRICS_MODEL_RANK_TABLE", "ModelRank")
	t.Setenv("CORE_METRICS_MODEL_RANK_INDEXES", "idx_dl:downloadCountAllTimeRank,ratingRank")
	t.Setenv("CORE_METRICS_MODEL_METRICS", "Download,ThumbsUp")

	o := FromConfig(config.New())
	if o.UpdateInterval != 5*time.Minute || len(o.Jobs) != 2 || o.Location.String() != "UTC" {
		t.Fatalf("options = %+v", o)
	}
	img, model := o.Jobs[0], o.Jobs[1]
	if img.Rank != nil || len(img.Metrics) != 10 {
		t.Fatalf("image job = %+v", img)
	}
	if model.Rank == nil || model.Rank.Table != "ModelRank" || model.Rank.PrimaryKey[0] != "modelId" {
		t.Fatalf("model rank = %+v", model.Rank)
	}
	ix := model.Rank.Indexes
	if len(ix) != 2 || ix[0].Name != "idx_dl" || ix[1].Name != "ratingRank" || ix[1].Columns[0] != "ratingRank" {
		t.Fatalf("indexes = %+v", ix)
	}
	if len(model.Metrics) != 2 {
		t.Fatalf("model metrics = %v", model.Metrics)
	}
}

type stubCaches map[string]emdom.Port

func (s stubCaches) Cache(t string) (emdom.Port, bool) {
	c, ok := s[t]
	return c, ok
}

func TestNew_WiresProcessorsAndMigrate(t *testing.T) {
	t.Setenv("CORE_METRICS_JOBS", "Image")
	db := sqlfake.New()

	m := New(modkit.Deps{Cfg: config.New(), PG: db}, modkit.WithPorts(stubCaches{}))
	p := m.Ports().(Ports)

	proc, err := p.Processor("Image")
	if err != nil || proc.Name() != "Image" {
		t.Fatalf("Processor = %v, %v", proc, err)
	}
	if _, err := p.Processor("Nope"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("unknown job err = %v", err)
	}

	if err := p.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	for _, want := range []string{"job_watermarks", "metric_update_queue", `"ImageMetric"`} {
		if len(db.Matching(want)) == 0 {
			t.Fatalf("migrate did not create %s", want)
		}
	}

	if err := proc.QueueUpdate(context.Background(), 1, 2); err != nil {
		t.Fatalf("QueueUpdate: %v", err)
	}
	if len(db.Matching("INSERT INTO metric_update_queue")) != 1 {
		t.Fatalf("queue insert not issued")
	}
}

func TestNew_NoPostgres(t *testing.T) {
	m := New(modkit.Deps{Cfg: config.New()})
	if p := m.Ports().(Ports); len(p.Processors) != 0 || p.Migrate != nil {
		t.Fatalf("ports = %+v", p)
	}
}
