package repo

import (
	"context"
	"strings"
	"testing"
	"time"

	"syncengine/internal/platform/testkit/sqlfake"
)

func TestEnqueue_UpsertsAllIDs(t *testing.T) {
	t.Parallel()

	db := sqlfake.New()
	r := NewPG().Bind(db)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := r.Enqueue(context.Background(), "Image", []int64{1, 2}, at); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	calls := db.Matching("INSERT INTO metric_update_queue")
	if len(calls) != 1 {
		t.Fatalf("calls = %+v", db.Calls())
	}
	if !strings.Contains(calls[0].SQL, "ON CONFLICT (job_key, entity_id)") {
		t.Fatalf("enqueue must upsert: %s", calls[0].SQL)
	}
	if calls[0].Args[0] != "Image" || len(calls[0].Args[1].([]int64)) != 2 || !calls[0].Args[2].(time.Time).Equal(at) {
		t.Fatalf("args = %v", calls[0].Args)
	}
}

func TestEnqueue_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	db := sqlfake.New()
	if err := NewPG().Bind(db).Enqueue(context.Background(), "Image", nil, time.Now()); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if n := len(db.Calls()); n != 0 {
		t.Fatalf("expected no statements, got %d", n)
	}
}

func TestPendingAndPurge(t *testing.T) {
	t.Parallel()

	db := sqlfake.New().
		On("SELECT entity_id FROM metric_update_queue", sqlfake.Result{Cols: []string{"entity_id"}, Rows: [][]any{{int64(4)}, {int64(9)}}}).
		On("DELETE FROM metric_update_queue", sqlfake.Result{Affected: 2})
	r := NewPG().Bind(db)
	cut := time.Now()

	ids, err := r.Pending(context.Background(), "Image", cut)
	if err != nil || len(ids) != 2 || ids[0] != 4 || ids[1] != 9 {
		t.Fatalf("Pending = %v, %v", ids, err)
	}
	n, err := r.Purge(context.Background(), "Image", cut)
	if err != nil || n != 2 {
		t.Fatalf("Purge = %d, %v", n, err)
	}
}

func TestMemoryQueue(t *testing.T) {
	t.Parallel()

	r := NewMemory().Bind(nil)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = r.Enqueue(ctx, "Image", []int64{3, 1}, t0)
	_ = r.Enqueue(ctx, "Image", []int64{2}, t0.Add(time.Hour))

	ids, _ := r.Pending(ctx, "Image", t0.Add(time.Minute))
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("pending = %v", ids)
	}
	n, _ := r.Purge(ctx, "Image", t0.Add(time.Minute))
	if n != 2 {
		t.Fatalf("purged = %d", n)
	}
	ids, _ = r.Pending(ctx, "Image", t0.Add(2*time.Hour))
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("late item should survive purge, got %v", ids)
	}
}
