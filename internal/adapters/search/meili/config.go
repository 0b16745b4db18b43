package meili

import (
	"time"

	"syncengine/internal/platform/config"
)

// FromConfig reads SERVICE_MEILI_URL, SERVICE_MEILI_API_KEY and SERVICE_MEILI_POLL
// an empty URL means no engine is configured
func FromConfig(cfg config.Conf) Config {
	c := cfg.Prefix("SERVICE_MEILI_")
	return Config{
		URL:    c.MayString("URL", ""),
		APIKey: c.MayString("API_KEY", ""),
		Poll:   c.MayDuration("POLL", 50*time.Millisecond),
	}
}
