package repo

import (
	"context"
	"strings"
	"testing"
	"time"

	"syncengine/internal/platform/testkit/sqlfake"
	sidom "syncengine/internal/services/searchindex/domain"
)

func TestEnqueue_LastWriteWinsWithinCall(t *testing.T) {
	t.Parallel()

	db := sqlfake.New()
	err := NewPG().Bind(db).Enqueue(context.Background(), "images", []sidom.Item{
		{ID: 1},
		{ID: 2, Action: sidom.ActionDelete},
		{ID: 1, Action: sidom.ActionDelete},
	}, time.Now())
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	c := db.Matching("INSERT INTO search_index_update_queue")
	if len(c) != 1 || !strings.Contains(c[0].SQL, "ON CONFLICT (index_name, entity_id) DO UPDATE") {
		t.Fatalf("calls = %+v", db.Calls())
	}
	ids, actions := c[0].Args[1].([]int64), c[0].Args[2].([]string)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 1 || actions[0] != "Delete" || actions[1] != "Delete" {
		t.Fatalf("ids=%v actions=%v", ids, actions)
	}
}

func TestPending_LimitAndDefaults(t *testing.T) {
	t.Parallel()

	db := sqlfake.New().On("SELECT entity_id, action", sqlfake.Result{
		Rows: [][]any{{int64(1), "Update"}, {int64(2), ""}, {int64(3), "Delete"}},
	})
	items, err := NewPG().Bind(db).Pending(context.Background(), "images", time.Now(), 10)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(items) != 3 || items[1].Action != sidom.ActionUpdate || items[2].Action != sidom.ActionDelete {
		t.Fatalf("items = %+v", items)
	}
	if c := db.Calls()[0]; !strings.Contains(c.SQL, "LIMIT $3") || c.Args[2] != 10 {
		t.Fatalf("limit not applied: %+v", c)
	}
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	db := sqlfake.New().On("DELETE FROM search_index_update_queue", sqlfake.Result{Affected: 4})
	r := NewPG().Bind(db)

	if n, err := r.Remove(context.Background(), "images", nil, time.Now()); n != 0 || err != nil {
		t.Fatalf("empty remove = %d %v", n, err)
	}
	if n, _ := r.Remove(context.Background(), "images", []int64{1}, time.Now()); n != 4 {
		t.Fatalf("remove = %d", n)
	}
	if n, _ := r.Clear(context.Background(), "images", time.Now()); n != 4 {
		t.Fatalf("clear = %d", n)
	}
	if len(db.Calls()) != 2 {
		t.Fatalf("calls = %d", len(db.Calls()))
	}
}

func TestMemoryQueue(t *testing.T) {
	t.Parallel()

	r := NewMemory().Bind(nil)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = r.Enqueue(ctx, "images", []sidom.Item{{ID: 2}, {ID: 1}}, t0)
	_ = r.Enqueue(ctx, "images", []sidom.Item{{ID: 2, Action: sidom.ActionDelete}}, t0.Add(time.Second))

	items, _ := r.Pending(ctx, "images", t0.Add(time.Hour), 0)
	if len(items) != 2 || items[0].ID != 1 || items[1].Action != sidom.ActionDelete {
		t.Fatalf("items = %+v", items)
	}
	if items, _ := r.Pending(ctx, "images", t0.Add(time.Hour), 1); len(items) != 1 {
		t.Fatalf("limit ignored: %+v", items)
	}
	if n, _ := r.Remove(ctx, "images", []int64{1, 2}, t0.Add(time.Millisecond)); n != 1 {
		t.Fatalf("remove should skip the re-queued id, removed %d", n)
	}
	if n, _ := r.Clear(ctx, "images", t0.Add(time.Hour)); n != 1 {
		t.Fatalf("clear = %d", n)
	}
}
