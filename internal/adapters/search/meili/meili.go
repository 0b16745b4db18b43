// Package meili implements the search engine contract on Meilisearch
package meili

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	perr "syncengine/internal/platform/errors"
	sidom "syncengine/internal/services/searchindex/domain"

	"github.com/meilisearch/meilisearch-go"
)

// Config configures the Meilisearch client
type Config struct {
	URL    string
	APIKey string
	// Poll is the task status polling interval, default 50ms
	Poll time.Duration
}

// client is the slice of the SDK the engine needs, every write returns its task uid
type client interface {
	GetIndex(ctx context.Context, uid string) error
	CreateIndex(ctx context.Context, uid, primaryKey string) (int64, error)
	DeleteIndex(ctx context.Context, uid string) (int64, error)
	SwapIndexes(ctx context.Context, a, b string) (int64, error)
	UpdateSettings(ctx context.Context, uid string, s *meilisearch.Settings) (int64, error)
	AddDocuments(ctx context.Context, uid string, docs []sidom.Document) (int64, error)
	DeleteDocuments(ctx context.Context, uid string, ids []string) (int64, error)
	WaitForTask(ctx context.Context, task int64, poll time.Duration) (meilisearch.TaskStatus, error)
}

// Engine waits for every task it enqueues so callers see completed writes
type Engine struct {
	c    client
	poll time.Duration
}

var _ sidom.Engine = (*Engine)(nil)

// New connects to cfg.URL
func New(cfg Config) (*Engine, error) {
	if cfg.URL == "" {
		return nil, perr.InvalidArgf("meili: url required")
	}
	sm := meilisearch.New(cfg.URL, meilisearch.WithAPIKey(cfg.APIKey))
	return newEngine(sdk{sm: sm}, cfg.Poll), nil
}

func newEngine(c client, poll time.Duration) *Engine {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	return &Engine{c: c, poll: poll}
}

// EnsureIndex creates name when missing
func (e *Engine) EnsureIndex(ctx context.Context, name, primaryKey string) error {
	err := e.c.GetIndex(ctx, name)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "meili: get index %s", name)
	}
	return e.await(ctx, "create index "+name)(e.c.CreateIndex(ctx, name, primaryKey))
}

// DeleteIndex drops name, a missing index is fine
func (e *Engine) DeleteIndex(ctx context.Context, name string) error {
	task, err := e.c.DeleteIndex(ctx, name)
	if isNotFound(err) {
		return nil
	}
	return e.await(ctx, "delete index "+name)(task, err)
}

// SwapIndexes exchanges a and b in one task
func (e *Engine) SwapIndexes(ctx context.Context, a, b string) error {
	return e.await(ctx, "swap "+a+"/"+b)(e.c.SwapIndexes(ctx, a, b))
}

// Configure applies searchable, filterable and sortable attributes
func (e *Engine) Configure(ctx context.Context, name string, s sidom.Settings) error {
	ms := &meilisearch.Settings{
		SearchableAttributes: s.Searchable,
		FilterableAttributes: s.Filterable,
		SortableAttributes:   s.Sortable,
	}
	return e.await(ctx, "settings "+name)(e.c.UpdateSettings(ctx, name, ms))
}

// Upsert adds or replaces documents
func (e *Engine) Upsert(ctx context.Context, name string, docs []sidom.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return e.await(ctx, "add documents "+name)(e.c.AddDocuments(ctx, name, docs))
}

// Delete removes documents by id
func (e *Engine) Delete(ctx context.Context, name string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = strconv.FormatInt(id, 10)
	}
	return e.await(ctx, "delete documents "+name)(e.c.DeleteDocuments(ctx, name, keys))
}

// await returns a func that waits on an enqueued task and maps its outcome
func (e *Engine) await(ctx context.Context, what string) func(int64, error) error {
	return func(task int64, err error) error {
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "meili: %s", what)
		}
		status, err := e.c.WaitForTask(ctx, task, e.poll)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "meili: wait %s", what)
		}
		if status != meilisearch.TaskStatusSucceeded {
			return perr.Unavailablef("meili: %s task %d ended %s", what, task, status)
		}
		return nil
	}
}

func isNotFound(err error) bool {
	var me *meilisearch.Error
	return errors.As(err, &me) && me.StatusCode == http.StatusNotFound
}

// sdk forwards to meilisearch-go
type sdk struct{ sm meilisearch.ServiceManager }

func (s sdk) GetIndex(ctx context.Context, uid string) error {
	_, err := s.sm.GetIndexWithContext(ctx, uid)
	return err
}

func (s sdk) CreateIndex(ctx context.Context, uid, primaryKey string) (int64, error) {
	return taskUID(s.sm.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{Uid: uid, PrimaryKey: primaryKey}))
}

func (s sdk) DeleteIndex(ctx context.Context, uid string) (int64, error) {
	return taskUID(s.sm.DeleteIndexWithContext(ctx, uid))
}

func (s sdk) SwapIndexes(ctx context.Context, a, b string) (int64, error) {
	return taskUID(s.sm.SwapIndexesWithContext(ctx, []*meilisearch.SwapIndexesParams{{Indexes: []string{a, b}}}))
}

func (s sdk) UpdateSettings(ctx context.Context, uid string, ms *meilisearch.Settings) (int64, error) {
	return taskUID(s.sm.Index(uid).UpdateSettingsWithContext(ctx, ms))
}

func (s sdk) AddDocuments(ctx context.Context, uid string, docs []sidom.Document) (int64, error) {
	return taskUID(s.sm.Index(uid).AddDocumentsWithContext(ctx, docs))
}

func (s sdk) DeleteDocuments(ctx context.Context, uid string, ids []string) (int64, error) {
	return taskUID(s.sm.Index(uid).DeleteDocumentsWithContext(ctx, ids))
}

func (s sdk) WaitForTask(ctx context.Context, task int64, poll time.Duration) (meilisearch.TaskStatus, error) {
	t, err := s.sm.WaitForTaskWithContext(ctx, task, poll)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

func taskUID(info *meilisearch.TaskInfo, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return info.TaskUID, nil
}
