package meili

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	perr "syncengine/internal/platform/errors"
	sidom "syncengine/internal/services/searchindex/domain"

	"github.com/meilisearch/meilisearch-go"
)

// fakeClient records calls and completes tasks with a scripted status
type fakeClient struct {
	indexes map[string]bool
	calls   []string
	waited  []int64
	next    int64
	status  meilisearch.TaskStatus
	addErr  error
	docs    []sidom.Document
	deleted []string
	swapped []string
	set     *meilisearch.Settings
}

var errNotFound = &meilisearch.Error{StatusCode: 404}

func newFake(existing ...string) *fakeClient {
	f := &fakeClient{indexes: map[string]bool{}, status: meilisearch.TaskStatusSucceeded}
	for _, n := range existing {
		f.indexes[n] = true
	}
	return f
}

func (f *fakeClient) task(call string) int64 {
	f.calls = append(f.calls, call)
	f.next++
	return f.next
}

func (f *fakeClient) GetIndex(_ context.Context, uid string) error {
	f.calls = append(f.calls, "get "+uid)
	if !f.indexes[uid] {
		return errNotFound
	}
	return nil
}

func (f *fakeClient) CreateIndex(_ context.Context, uid, _ string) (int64, error) {
	f.indexes[uid] = true
	return f.task("create " + uid), nil
}

func (f *fakeClient) DeleteIndex(_ context.Context, uid string) (int64, error) {
	if !f.indexes[uid] {
		return 0, errNotFound
	}
	delete(f.indexes, uid)
	return f.task("delete " + uid), nil
}

func (f *fakeClient) SwapIndexes(_ context.Context, a, b string) (int64, error) {
	f.swapped = []string{a, b}
	return f.task("swap"), nil
}

func (f *fakeClient) UpdateSettings(_ context.Context, uid string, s *meilisearch.Settings) (int64, error) {
	f.set = s
	return f.task("settings " + uid), nil
}

func (f *fakeClient) AddDocuments(_ context.Context, uid string, docs []sidom.Document) (int64, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.docs = append(f.docs, docs...)
	return f.task("add " + uid), nil
}

func (f *fakeClient) DeleteDocuments(_ context.Context, uid string, ids []string) (int64, error) {
	f.deleted = append(f.deleted, ids...)
	return f.task("deldocs " + uid), nil
}

func (f *fakeClient) WaitForTask(_ context.Context, task int64, _ time.Duration) (meilisearch.TaskStatus, error) {
	f.waited = append(f.waited, task)
	return f.status, nil
}

func TestEnsureIndex_CreatesOnlyWhenMissing(t *testing.T) {
	t.Parallel()

	f := newFake("images")
	e := newEngine(f, 0)
	ctx := context.Background()

	if err := e.EnsureIndex(ctx, "images", "id"); err != nil {
		t.Fatalf("EnsureIndex existing: %v", err)
	}
	if err := e.EnsureIndex(ctx, "images_NEW", "id"); err != nil {
		t.Fatalf("EnsureIndex missing: %v", err)
	}
	want := []string{"get images", "get images_NEW", "create images_NEW"}
	if !slices.Equal(f.calls, want) {
		t.Fatalf("calls = %v", f.calls)
	}
	if !slices.Equal(f.waited, []int64{1}) {
		t.Fatalf("waited = %v", f.waited)
	}
}

func TestDeleteIndex_MissingIsFine(t *testing.T) {
	t.Parallel()

	e := newEngine(newFake(), 0)
	if err := e.DeleteIndex(context.Background(), "gone"); err != nil {
		t.Fatalf("DeleteIndex: %v", err)
	}
}

func TestFailedTaskIsUnavailable(t *testing.T) {
	t.Parallel()

	f := newFake("a", "b")
	f.status = meilisearch.TaskStatusFailed
	err := newEngine(f, 0).SwapIndexes(context.Background(), "a", "b")
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if !slices.Equal(f.swapped, []string{"a", "b"}) {
		t.Fatalf("swapped = %v", f.swapped)
	}
}

func TestEnqueueErrorWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	f := newFake()
	f.addErr = boom
	err := newEngine(f, 0).Upsert(context.Background(), "images", []sidom.Document{{"id": int64(1)}})
	if !errors.Is(err, boom) || !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if len(f.waited) != 0 {
		t.Fatalf("waited on a task that was never enqueued")
	}
}

func TestDocumentsAndSettings(t *testing.T) {
	t.Parallel()

	f := newFake("images")
	e := newEngine(f, 0)
	ctx := context.Background()

	if err := e.Upsert(ctx, "images", nil); err != nil || len(f.calls) != 0 {
		t.Fatalf("empty upsert issued calls: %v %v", err, f.calls)
	}
	if err := e.Upsert(ctx, "images", []sidom.Document{{"id": int64(1)}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := e.Delete(ctx, "images", []int64{4, 12}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !slices.Equal(f.deleted, []string{"4", "12"}) {
		t.Fatalf("deleted = %v", f.deleted)
	}
	if err := e.Configure(ctx, "images", sidom.Settings{Searchable: []string{"prompt"}, Sortable: []string{"id"}}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if f.set == nil || f.set.SearchableAttributes[0] != "prompt" || f.set.SortableAttributes[0] != "id" {
		t.Fatalf("settings = %+v", f.set)
	}
	if len(f.waited) != 3 {
		t.Fatalf("waited = %v", f.waited)
	}
}

func TestNew_RequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}
