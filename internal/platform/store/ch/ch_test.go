package ch

import (
	"testing"

	"syncengine/internal/platform/testkit"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

func TestOpen(t *testing.T) {
	testkit.Serial(t)

	if _, err := Open(Config{}); err == nil {
		t.Fatal("empty url accepted")
	}
	if _, err := Open(Config{URL: "clickhouse://h:notaport"}); err == nil {
		t.Fatal("bad dsn accepted")
	}

	var got *clickhouse.Options
	testkit.Swap(t, &open, func(o *clickhouse.Options) (driver.Conn, error) {
		got = o
		return nil, nil
	})
	c, err := Open(Config{URL: "clickhouse://127.0.0.1:9000/default", MaxConns: 4, ClientName: "syncengine", ClientTag: "worker"})
	if err != nil {
		t.Fatal(err)
	}
	if got.MaxOpenConns != 4 || len(got.ClientInfo.Products) != 5 || got.ClientInfo.Products[1].Version != "worker" {
		t.Fatalf("options = %+v", got)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil conn: %v", err)
	}
}

func TestClientInfo_DefaultsApp(t *testing.T) {
	t.Parallel()

	info := ClientInfo(" ", "api")
	if info.Products[0].Name != "app" || info.Products[0].Version != "syncengine" {
		t.Fatalf("products = %+v", info.Products)
	}
}
