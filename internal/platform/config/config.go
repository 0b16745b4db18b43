// Package config reads typed settings from prefixed environment variables
package config

import (
	"strconv"
	"strings"
	"time"

	"syncengine/internal/platform/config/raw"
	"syncengine/internal/platform/logger"
)

// Conf is a namespaced view over the environment, e.g. root.Prefix("CORE_API_")
// the zero value reads unprefixed keys
type Conf struct{ env raw.Conf }

// New returns the root Conf
func New() Conf { return Conf{env: raw.New()} }

// Prefix returns a child Conf, prefixes accumulate
func (c Conf) Prefix(p string) Conf { return Conf{env: c.env.Prefix(p)} }

// MustString panics when key is unset or blank
func (c Conf) MustString(key string) string {
	v, ok := c.env.Lookup(key)
	if !ok {
		logger.Get().Panic().Str("key", c.env.Key(key)).Msg("config: missing required env")
	}
	return v
}

// MayString returns the value or def
func (c Conf) MayString(key, def string) string { return c.env.Get(key, def) }

// MayInt returns the value or def, invalid input logs and returns def
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

// MayFloat64 returns the value or def, invalid input logs and returns def
func (c Conf) MayFloat64(key string, def float64) float64 {
	return may(c, key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayBool returns the value or def, invalid input logs and returns def
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration parses Go durations like 250ms or 1h30m
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayCSV splits a comma list, dropping blank items
// def is returned when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	s, ok := c.env.Lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s, ok := c.env.Lookup(key)
	if !ok {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().
			Str("key", c.env.Key(key)).
			Str("value", s).
			Interface("default", def).
			Msg("config: invalid value, using default")
		return def
	}
	return v
}
