package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Operational holds the broker's optional Prometheus/Sentry/session-store settings
// — deployment concerns outside the protocol config in §6, expressed as
// YAML since that surface is a better fit for a structured format than
// the line-oriented scanner.
type Operational struct {
	MetricsAddr       string `yaml:"metrics_addr"`
	SentryDSN         string `yaml:"sentry_dsn"`
	SnapshotCompress  bool   `yaml:"snapshot_compress"`
	SessionExpirySec  uint32 `yaml:"session_expiry_seconds"`
	StoreBackend      string `yaml:"store_backend"`
	RedisAddr         string `yaml:"redis_addr"`
	PebbleDir         string `yaml:"pebble_dir"`
	PublishRateLimit  int    `yaml:"publish_rate_limit"`
	PublishRateBurst  int    `yaml:"publish_rate_burst"`
}

// LoadOperationalFile reads and parses a YAML operational config. A
// missing file is not an error — callers get the zero-value defaults.
func LoadOperationalFile(path string) (Operational, error) {
	var op Operational
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return op, nil
		}
		return op, errors.Wrap(err, "config: read operational config")
	}
	if err := yaml.Unmarshal(data, &op); err != nil {
		return op, errors.Wrap(err, "config: parse operational config")
	}
	return op, nil
}
