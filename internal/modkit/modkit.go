// Package modkit composes service modules from shared deps and options
package modkit

import (
	"syncengine/internal/modkit/module"
	"syncengine/internal/modkit/repokit"
	"syncengine/internal/platform/config"
	"syncengine/internal/platform/logger"
	"syncengine/internal/platform/store"

	"github.com/redis/go-redis/v9"
)

// Module is what the api mounts and what the registry stores ports for
type Module = module.Module

// Deps are the shared handles every module is built from
// CH and RDS are nil when those stores are disabled
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
	RDS redis.UniversalClient
}
