package repo

import (
	"context"
	"strings"
	"testing"

	"syncengine/internal/platform/testkit/sqlfake"
)

func TestStatusFetcher(t *testing.T) {
	t.Parallel()

	db := sqlfake.New().On("SELECT id, status", sqlfake.Result{
		Cols: []string{"id", "status"},
		Rows: [][]any{{int64(1), "Published"}, {int64(2), "Draft"}},
	})
	fetch := StatusFetcher(db, "Model")

	got, err := fetch(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got[1]["status"] != "Published" || got[2]["status"] != "Draft" {
		t.Fatalf("extras = %v", got)
	}
	if _, ok := got[3]; ok {
		t.Fatalf("unknown id should have no extra")
	}
	calls := db.Calls()
	if len(calls) != 1 || !strings.Contains(calls[0].SQL, `FROM "Model"`) {
		t.Fatalf("calls = %+v", calls)
	}
}
