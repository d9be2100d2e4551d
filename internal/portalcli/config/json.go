package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/talenorix/candidate-portal/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Timeouts are
// given in whole seconds (HTTP) and milliseconds (readiness) so the file
// stays editable by hand.
type JsonConfig struct {
	BaseURL         string `json:"base_url"`
	AnonKey         string `json:"anon_key"`
	HTTPTimeoutSec  int    `json:"http_timeout_sec"`
	ReadyTimeoutMs  int    `json:"ready_timeout_ms"`
	StateDir        string `json:"state_dir"`
	StorageEndpoint string `json:"storage_endpoint"`
	StorageRegion   string `json:"storage_region"`
	StorageAccess   string `json:"storage_access_key"`
	StorageSecret   string `json:"storage_secret_key"`
}

// parseJson overlays Config with values loaded from a JSON file resolved via
// the -c or -config flags. Absent file means no overlay; read or unmarshal
// errors panic, matching the flag layer.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BaseURL != "" {
		cfg.BaseURL = jc.BaseURL
	}
	if jc.AnonKey != "" {
		cfg.AnonKey = jc.AnonKey
	}
	if jc.HTTPTimeoutSec > 0 {
		cfg.HTTPTimeout = time.Duration(jc.HTTPTimeoutSec) * time.Second
	}
	if jc.ReadyTimeoutMs > 0 {
		cfg.ReadyTimeout = time.Duration(jc.ReadyTimeoutMs) * time.Millisecond
	}
	if jc.StateDir != "" {
		cfg.StateDir = jc.StateDir
	}
	if jc.StorageEndpoint != "" {
		cfg.Storage.Endpoint = jc.StorageEndpoint
	}
	if jc.StorageRegion != "" {
		cfg.Storage.Region = jc.StorageRegion
	}
	if jc.StorageAccess != "" {
		cfg.Storage.AccessKey = jc.StorageAccess
	}
	if jc.StorageSecret != "" {
		cfg.Storage.SecretKey = jc.StorageSecret
	}
}
