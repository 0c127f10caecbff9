package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("SUI_RPC_URL", "http://a:9000, http://b:9000")
	t.Setenv("POSTGRES_URL", "postgres://localhost/nft")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.RPCURLs) != 2 || cfg.RPCURLs[1] != "http://b:9000" {
		t.Errorf("RPCURLs = %v", cfg.RPCURLs)
	}
	if cfg.MultiGetChunkSize != 50 || cfg.BatchIndex != 10 || cfg.StartCheckpoint != 0 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.HTTPEnabled {
		t.Error("HTTPEnabled = true; want false by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CHAIN_ID", "2")
	t.Setenv("START_CHECKPOINT", "1200")
	t.Setenv("BATCH_INDEX", "32")
	t.Setenv("FETCH_RETRY_DELAY", "250ms")
	t.Setenv("BOBYARD_CONTRACT", "0xb0b")
	t.Setenv("HTTP_ENABLED", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChainID != 2 || cfg.StartCheckpoint != 1200 || cfg.BatchIndex != 32 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.FetchRetryDelay != 250*time.Millisecond {
		t.Errorf("FetchRetryDelay = %v", cfg.FetchRetryDelay)
	}
	if cfg.BobYardContract != "0xb0b" || !cfg.HTTPEnabled {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"BATCH_INDEX", "abc"},
		{"BATCH_INDEX", "0"},
		{"MULTI_GET_CHUNK_SIZE", "51"},
		{"CYCLE_BACKOFF", "soon"},
		{"CHAIN_ID", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() error = nil")
			}
		})
	}
}

func TestLoadRequiresRPC(t *testing.T) {
	setRequired(t)
	t.Setenv("SUI_RPC_URL", "")
	if _, err := Load(); err == nil {
		t.Error("Load() without SUI_RPC_URL error = nil")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SUI_INDEXER_TEST_VAR=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUI_INDEXER_TEST_VAR", "")
	os.Unsetenv("SUI_INDEXER_TEST_VAR")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("SUI_INDEXER_TEST_VAR"); got != "from-file" {
		t.Errorf("SUI_INDEXER_TEST_VAR = %q", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadDotEnv(missing) error = %v; want nil", err)
	}
}
