package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)

	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	applyGatewayDefaults(&cfg.Gateway)

	// The stock deployment: three remote shards behind the gateway.
	if len(cfg.Nodes) == 0 {
		cfg.Nodes = []NodeConfig{
			{Name: "S2", Listen: ":8001", Address: "127.0.0.1:8001", Root: "~/S2", Extension: ".pdf", Archive: true},
			{Name: "S3", Listen: ":8002", Address: "127.0.0.1:8002", Root: "~/S3", Extension: ".txt", Archive: true},
			{Name: "S4", Listen: ":8003", Address: "127.0.0.1:8003", Root: "~/S4", Extension: ".zip", Archive: false},
		}
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyGatewayDefaults(cfg *GatewayConfig) {
	if cfg.Name == "" {
		cfg.Name = "S1"
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8000"
	}
	if cfg.Root == "" {
		cfg.Root = "~/S1"
	}
	if cfg.Extension == "" {
		cfg.Extension = ".c"
	}
}

// GetDefaultConfig returns a fully defaulted configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
