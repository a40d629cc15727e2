// Package config loads and validates the shardfs configuration shared by
// the gateway and the shard node binaries.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SHARDFS_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/rvaleri/shardfs/internal/shard"
)

// Config is the complete shardfs configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains settings shared by both binaries
	Server ServerConfig `mapstructure:"server"`

	// Gateway describes the gateway node and its default shard
	Gateway GatewayConfig `mapstructure:"gateway"`

	// Nodes describes the remote shard nodes in aggregation order
	Nodes []NodeConfig `mapstructure:"nodes" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is the log line format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output is stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains settings shared by gateway and nodes.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// GatewayConfig describes the gateway and the shard it owns directly.
type GatewayConfig struct {
	// Name is the node name; clients address the namespace as "~" + Name
	Name string `mapstructure:"name" validate:"required"`

	// Listen is the host:port the gateway accepts clients on
	Listen string `mapstructure:"listen" validate:"required"`

	// Root is the storage root for the gateway's own shard ("~" expands
	// to the user home directory)
	Root string `mapstructure:"root" validate:"required"`

	// Extension is the one file extension the gateway stores locally
	Extension string `mapstructure:"extension" validate:"required,startswith=."`
}

// NodeConfig describes one remote shard node.
type NodeConfig struct {
	// Name is the node name; forwarded paths carry "~" + Name
	Name string `mapstructure:"name" validate:"required"`

	// Listen is the host:port the node binary listens on
	Listen string `mapstructure:"listen" validate:"required"`

	// Address is where the gateway dials the node
	Address string `mapstructure:"address" validate:"required"`

	// Root is the node's storage root
	Root string `mapstructure:"root" validate:"required"`

	// Extension is the one file extension this node owns
	Extension string `mapstructure:"extension" validate:"required,startswith=."`

	// Archive enables bundle (tar) requests for this node's extension
	Archive bool `mapstructure:"archive"`
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath skips the file and uses environment plus defaults,
// which is how the test binaries run.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("SHARDFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	decodeDurations := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeDurations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := expandRoots(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ShardTable builds the gateway's routing table: the local shard plus
// the remote shards in configured order.
func (c *Config) ShardTable() (*shard.Table, error) {
	local := shard.Shard{Name: c.Gateway.Name, Ext: c.Gateway.Extension, Archivable: true}

	remotes := make([]shard.Shard, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		remotes = append(remotes, shard.Shard{
			Name:       n.Name,
			Ext:        n.Extension,
			Addr:       n.Address,
			Archivable: n.Archive,
		})
	}
	return shard.NewTable(local, remotes)
}

// Node returns the configuration of the named shard node.
func (c *Config) Node(name string) (NodeConfig, error) {
	for _, n := range c.Nodes {
		if n.Name == name {
			return n, nil
		}
	}
	return NodeConfig{}, fmt.Errorf("node %q is not configured", name)
}

// expandRoots resolves "~" storage-root prefixes against the user home
// directory.
func expandRoots(cfg *Config) error {
	var err error
	if cfg.Gateway.Root, err = expandHome(cfg.Gateway.Root); err != nil {
		return err
	}
	for i := range cfg.Nodes {
		if cfg.Nodes[i].Root, err = expandHome(cfg.Nodes[i].Root); err != nil {
			return err
		}
	}
	return nil
}

func expandHome(root string) (string, error) {
	if root != "~" && !strings.HasPrefix(root, "~/") {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", root, err)
	}
	return filepath.Join(home, strings.TrimPrefix(root, "~")), nil
}
