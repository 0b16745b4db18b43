// Package service implements the watermark port on top of the repo
package service

import (
	"context"
	"time"

	"syncengine/internal/modkit/repokit"
	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/logger"
	wmdom "syncengine/internal/services/watermark/domain"
)

// Service is the watermark store
// it holds no locks; concurrent writers are reconciled by value
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[wmdom.Repo]
}

var _ wmdom.Port = (*Service)(nil)

// New constructs the watermark service
func New(db repokit.TxRunner, binder repokit.Binder[wmdom.Repo]) *Service {
	if db == nil {
		panic("watermark.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("watermark.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder}
}

func (s *Service) repo() wmdom.Repo { return s.Binder.Bind(s.DB) }

// Migrate creates the backing table
func (s *Service) Migrate(ctx context.Context) error {
	return perr.FromPostgres(s.repo().Migrate(ctx), "watermark: migrate")
}

// Get returns the stored watermark or wmdom.Epoch
func (s *Service) Get(ctx context.Context, jobKey string) (time.Time, error) {
	if jobKey == "" {
		return time.Time{}, perr.InvalidArgf("watermark: empty job key")
	}
	t, found, err := s.repo().Get(ctx, jobKey)
	if err != nil {
		return time.Time{}, perr.FromPostgres(err, "watermark: get")
	}
	if !found {
		return wmdom.Epoch, nil
	}
	return t, nil
}

// Set advances the watermark; an older t is a silent no-op
func (s *Service) Set(ctx context.Context, jobKey string, t time.Time) (bool, error) {
	if jobKey == "" {
		return false, perr.InvalidArgf("watermark: empty job key")
	}
	ok, err := s.repo().SetIfNewer(ctx, jobKey, t)
	if err != nil {
		return false, perr.FromPostgres(err, "watermark: set")
	}
	if !ok {
		logger.C(ctx).Debug().Str("job", jobKey).Time("at", t.UTC()).Msg("watermark: stale write ignored")
	}
	return ok, nil
}

// Force overwrites the watermark unconditionally
func (s *Service) Force(ctx context.Context, jobKey string, t time.Time) error {
	if jobKey == "" {
		return perr.InvalidArgf("watermark: empty job key")
	}
	logger.C(ctx).Info().Str("job", jobKey).Time("at", t.UTC()).Msg("watermark: forced")
	return perr.FromPostgres(s.repo().Upsert(ctx, jobKey, t), "watermark: force")
}

// Delete drops the watermark so the next run starts from Epoch
func (s *Service) Delete(ctx context.Context, jobKey string) error {
	if jobKey == "" {
		return perr.InvalidArgf("watermark: empty job key")
	}
	return perr.FromPostgres(s.repo().Delete(ctx, jobKey), "watermark: delete")
}

// List returns every stored watermark
func (s *Service) List(ctx context.Context) ([]wmdom.Watermark, error) {
	out, err := s.repo().List(ctx)
	if err != nil {
		return nil, perr.FromPostgres(err, "watermark: list")
	}
	return out, nil
}
