package store

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestOpen_RedisOnly(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := Open(ctx, Config{RDS: RedisConfig{Enabled: true, Addr: mr.Addr()}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.RDS == nil || s.PG != nil || s.CH != nil {
		t.Fatalf("seams PG=%v CH=%v RDS=%v", s.PG, s.CH, s.RDS)
	}
	if err := s.Guard(ctx); err != nil {
		t.Fatalf("Guard: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		cfg  Config
		want string
	}{
		"redis url":  {Config{RDS: RedisConfig{Enabled: true, URL: "http://nope"}}, "store: redis"},
		"redis none": {Config{RDS: RedisConfig{Enabled: true}}, "url or addr required"},
		"pg url":     {Config{PG: PGConfig{Enabled: true, URL: "postgres://u@h:badport/db"}}, "store: postgres"},
		"pg empty":   {Config{PG: PGConfig{Enabled: true}}, "pg: empty url"},
		"ch empty":   {Config{CH: CHConfig{Enabled: true}}, "store: clickhouse"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Open(context.Background(), tc.cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestOpen_ClickhouseDialsLazily(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), Config{
		AppName: "syncengine-test",
		CH:      CHConfig{Enabled: true, URL: "clickhouse://127.0.0.1:1/default"},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close(context.Background()) }()

	if s.CH == nil {
		t.Fatal("clickhouse seam not set")
	}
	if err := s.CH.Insert(context.Background(), "events", "not rows"); err == nil {
		t.Fatal("insert accepted a non [][]any payload")
	}
	if err := s.CH.Insert(context.Background(), "events", [][]any(nil)); err != nil {
		t.Fatalf("empty insert: %v", err)
	}
}

type fakePG struct {
	TxRunner
	err error
}

func (f fakePG) Ping(context.Context) error { return f.err }

type fakeCH struct {
	Clickhouse
	err error
}

func (f fakeCH) Ping(context.Context) error { return f.err }

func TestGuard(t *testing.T) {
	t.Parallel()

	if err := (*Store)(nil).Guard(context.Background()); err == nil {
		t.Fatal("nil store passed Guard")
	}
	if err := (&Store{}).Guard(context.Background()); err != nil {
		t.Fatalf("empty store: %v", err)
	}

	down := errors.New("connection refused")
	s := &Store{PG: fakePG{err: down}, CH: fakeCH{}}
	err := s.Guard(context.Background())
	if !errors.Is(err, down) || !strings.HasPrefix(err.Error(), "pg: ") {
		t.Fatalf("err = %v", err)
	}

	s = &Store{PG: fakePG{err: down}, CH: fakeCH{err: down}}
	if msg := s.Guard(context.Background()).Error(); !strings.Contains(msg, "pg: ") || !strings.Contains(msg, "ch: ") {
		t.Fatalf("both failures should be joined, got %q", msg)
	}
}

func TestWaitReady(t *testing.T) {
	t.Parallel()

	t.Run("retries until up", func(t *testing.T) {
		var n atomic.Int32
		err := waitReady(context.Background(), 5, time.Second, func(context.Context) error {
			if n.Add(1) < 3 {
				return errors.New("not yet")
			}
			return nil
		})
		if err != nil || n.Load() != 3 {
			t.Fatalf("err %v after %d pings", err, n.Load())
		}
	})

	t.Run("gives up", func(t *testing.T) {
		var n atomic.Int32
		down := errors.New("down")
		err := waitReady(context.Background(), 2, time.Second, func(context.Context) error {
			n.Add(1)
			return down
		})
		if !errors.Is(err, down) || n.Load() != 2 {
			t.Fatalf("err %v after %d pings", err, n.Load())
		}
	})

	t.Run("ping gets a deadline", func(t *testing.T) {
		err := waitReady(context.Background(), 1, time.Second, func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := waitReady(ctx, 10, time.Second, func(ctx context.Context) error { return errors.New("down") })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	})
}
