package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults-only load to succeed, got %v", err)
	}

	if cfg.Gateway.Name != "S1" {
		t.Errorf("Expected gateway name 'S1', got %q", cfg.Gateway.Name)
	}
	if len(cfg.Nodes) != 3 {
		t.Errorf("Expected 3 nodes, got %d", len(cfg.Nodes))
	}
}

func TestLoad_FromFile(t *testing.T) {
	yaml := `
logging:
  level: debug
gateway:
  name: G1
  listen: ":9100"
  root: /tmp/shardfs-test/g1
  extension: .c
nodes:
  - name: N2
    listen: ":9101"
    address: "127.0.0.1:9101"
    root: /tmp/shardfs-test/n2
    extension: .pdf
    archive: true
server:
  shutdown_timeout: 5s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected file load to succeed, got %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected log level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Gateway.Name != "G1" {
		t.Errorf("Expected gateway name 'G1', got %q", cfg.Gateway.Name)
	}
	if len(cfg.Nodes) != 1 || cfg.Nodes[0].Name != "N2" {
		t.Fatalf("Expected one node 'N2', got %+v", cfg.Nodes)
	}
	if cfg.Server.ShutdownTimeout.Seconds() != 5 {
		t.Errorf("Expected shutdown timeout 5s, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	yaml := `
gateway:
  extension: c
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected load to fail for extension without leading dot")
	}
}

func TestLoad_ExpandsHomeRoots(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory in test environment")
	}
	want := filepath.Join(home, "S1")
	if cfg.Gateway.Root != want {
		t.Errorf("Expected gateway root %q, got %q", want, cfg.Gateway.Root)
	}
}

func TestShardTable(t *testing.T) {
	cfg := GetDefaultConfig()

	table, err := cfg.ShardTable()
	if err != nil {
		t.Fatalf("Expected shard table to build, got %v", err)
	}

	if table.Local().Name != "S1" || !table.Local().Archivable {
		t.Errorf("Unexpected local shard %+v", table.Local())
	}
	if len(table.Remotes()) != 3 {
		t.Fatalf("Expected 3 remote shards, got %d", len(table.Remotes()))
	}

	owner, err := table.ByExtension(".zip")
	if err != nil {
		t.Fatal(err)
	}
	if owner.Name != "S4" || owner.Archivable {
		t.Errorf("Expected non-archivable S4 for .zip, got %+v", owner)
	}
}

func TestNode(t *testing.T) {
	cfg := GetDefaultConfig()

	node, err := cfg.Node("S3")
	if err != nil {
		t.Fatalf("Expected node S3, got %v", err)
	}
	if node.Extension != ".txt" {
		t.Errorf("Expected S3 extension '.txt', got %q", node.Extension)
	}

	if _, err := cfg.Node("S9"); err == nil {
		t.Error("Expected error for unknown node name")
	}
}
