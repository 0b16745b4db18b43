package memsearch

import (
	"context"
	"testing"

	perr "syncengine/internal/platform/errors"
	sidom "syncengine/internal/services/searchindex/domain"
)

func TestEngine_Lifecycle(t *testing.T) {
	t.Parallel()

	e := New()
	ctx := context.Background()

	_ = e.EnsureIndex(ctx, "images", "id")
	_ = e.EnsureIndex(ctx, "images_NEW", "id")
	_ = e.Upsert(ctx, "images", []sidom.Document{{"id": int64(1)}, {"id": int64(2)}})
	_ = e.Upsert(ctx, "images_NEW", []sidom.Document{{"id": int64(3)}})

	if err := e.SwapIndexes(ctx, "images", "images_NEW"); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if ids := e.IDs("images"); len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("live after swap = %v", ids)
	}
	if ids := e.IDs("images_NEW"); len(ids) != 2 {
		t.Fatalf("old docs should sit under the swap name, got %v", ids)
	}

	_ = e.Delete(ctx, "images", []int64{3})
	if _, ok := e.Get("images", 3); ok {
		t.Fatalf("delete did not remove doc")
	}
	_ = e.DeleteIndex(ctx, "images_NEW")
	if e.Exists("images_NEW") {
		t.Fatalf("index not dropped")
	}
}

func TestEngine_Errors(t *testing.T) {
	t.Parallel()

	e := New()
	ctx := context.Background()

	if err := e.SwapIndexes(ctx, "a", "b"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("swap missing err = %v", err)
	}
	if err := e.Configure(ctx, "a", sidom.Settings{}); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("configure missing err = %v", err)
	}
	_ = e.EnsureIndex(ctx, "a", "id")
	if err := e.Upsert(ctx, "a", []sidom.Document{{"name": "x"}}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing pk err = %v", err)
	}
	if err := e.DeleteIndex(ctx, "missing"); err != nil {
		t.Fatalf("delete missing index: %v", err)
	}
}

func TestEngine_ConfigureAndUpsertAutoCreate(t *testing.T) {
	t.Parallel()

	e := New()
	ctx := context.Background()
	if err := e.Upsert(ctx, "posts", []sidom.Document{{"id": 9}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, ok := e.Get("posts", 9); !ok {
		t.Fatalf("auto created index missing doc")
	}
	s := sidom.Settings{Filterable: []string{"nsfw"}}
	if err := e.Configure(ctx, "posts", s); err != nil || e.SettingsOf("posts").Filterable[0] != "nsfw" {
		t.Fatalf("configure = %v %+v", err, e.SettingsOf("posts"))
	}
}
