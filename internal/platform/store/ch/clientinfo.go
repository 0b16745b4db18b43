package ch

import (
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClientInfo names this process to the server as app, role, go, commit and host products
func ClientInfo(app, role string) clickhouse.ClientInfo {
	if strings.TrimSpace(app) == "" {
		app = "syncengine"
	}
	host, _ := os.Hostname()

	info := clickhouse.ClientInfo{}
	for _, p := range [][2]string{
		{"app", app},
		{"role", role},
		{"go", runtime.Version()},
		{"commit", revision()},
		{"host", host},
	} {
		info.Products = append(info.Products, struct{ Name, Version string }{p[0], strings.TrimSpace(p[1])})
	}
	return info
}

func revision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return "unknown"
}
