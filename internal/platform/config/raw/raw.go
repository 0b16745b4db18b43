// Package raw reads environment variables without logging
// the logger bootstraps from it so it must stay dependency free
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf is a prefixed view over the environment
type Conf struct{ prefix string }

// New returns an unprefixed Conf
func New() Conf { return Conf{} }

// Prefix returns a child view, prefixes accumulate
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Key returns the full variable name for k
func (c Conf) Key(k string) string { return c.prefix + k }

// Lookup returns the trimmed value, ok is false when unset or blank
func (c Conf) Lookup(k string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.Key(k)))
	return v, v != ""
}

// Get returns the value or def
func (c Conf) Get(k, def string) string {
	if v, ok := c.Lookup(k); ok {
		return v
	}
	return def
}

// GetBool accepts anything strconv.ParseBool does plus yes and no
// unparseable values fall back to def
func (c Conf) GetBool(k string, def bool) bool {
	v, ok := c.Lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}
