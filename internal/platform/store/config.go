package store

import (
	"time"

	"syncengine/internal/platform/config"
)

// Config selects and configures the backends Open dials
type Config struct {
	// AppName is reported to postgres and clickhouse so sessions are attributable
	AppName string

	PG  PGConfig
	CH  CHConfig
	RDS RedisConfig
}

// PGConfig configures the postgres pool
type PGConfig struct {
	Enabled  bool
	URL      string
	MaxConns int32
	// LogSQL logs every statement, otherwise only slow or failed ones are logged
	LogSQL bool
	// SlowQueryMs marks statements at or over it as slow, negative disables
	SlowQueryMs int

	ConnectRetries int           // 20 when zero
	PingTimeout    time.Duration // 3s when zero
}

// CHConfig configures clickhouse, the connection is dialed lazily
type CHConfig struct {
	Enabled bool
	URL     string
	// ClientName defaults to AppName, ClientTag names the role (api, worker)
	ClientName string
	ClientTag  string
	MaxConns   int
}

// RedisConfig configures redis, URL wins over Addr
type RedisConfig struct {
	Enabled  bool
	URL      string
	Addr     string
	Password string
	DB       int
	PoolSize int

	ConnectRetries int // 5 when zero
}

// FromConfig reads SERVICE_PGSQL_*, SERVICE_CLICKHOUSE_* and SERVICE_REDIS_*
// postgres is always on, clickhouse and redis turn on when their url is set
func FromConfig(root config.Conf, app, role string, maxConns int, slowMs int) Config {
	pg := root.Prefix("SERVICE_PGSQL_")
	ch := root.Prefix("SERVICE_CLICKHOUSE_")
	rd := root.Prefix("SERVICE_REDIS_")

	chURL := ch.MayString("DBURL", "")
	rdURL := rd.MayString("URL", "")
	return Config{
		AppName: app,
		PG: PGConfig{
			Enabled:     true,
			URL:         pg.MustString("DBURL"),
			MaxConns:    int32(pg.MayInt("MAX_CONNS", maxConns)),
			SlowQueryMs: pg.MayInt("SLOW_MS", slowMs),
			LogSQL:      pg.MayBool("LOG_SQL", false),
		},
		CH: CHConfig{
			Enabled:   chURL != "",
			URL:       chURL,
			ClientTag: role,
			MaxConns:  ch.MayInt("MAX_CONNS", 0),
		},
		RDS: RedisConfig{
			Enabled:  rdURL != "",
			URL:      rdURL,
			PoolSize: rd.MayInt("POOL_SIZE", 10),
		},
	}
}
