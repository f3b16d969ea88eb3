package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./playsync.db" {
			t.Errorf("expected database path ./playsync.db, got %s", config.Database.Path)
		}
		if config.Server.Addr() != "127.0.0.1:3000" {
			t.Errorf("expected server addr 127.0.0.1:3000, got %s", config.Server.Addr())
		}
		if config.Credentials.YouTube.ProxyURL != "http://127.0.0.1:8080" {
			t.Errorf("expected youtube proxy URL http://127.0.0.1:8080, got %s", config.Credentials.YouTube.ProxyURL)
		}
		if config.Credentials.Spotify.BatchSize != 100 || config.Credentials.YouTube.BatchSize != 100 {
			t.Errorf("expected batch sizes of 100, got %d and %d",
				config.Credentials.Spotify.BatchSize, config.Credentials.YouTube.BatchSize)
		}
		if config.Sync.Candidates != 5 {
			t.Errorf("expected 5 candidates, got %d", config.Sync.Candidates)
		}
		if config.Sync.RequestTimeout != 15*time.Second {
			t.Errorf("expected request timeout 15s, got %v", config.Sync.RequestTimeout)
		}
		if config.Sync.RetryBaseDelay != 500*time.Millisecond {
			t.Errorf("expected retry base delay 500ms, got %v", config.Sync.RetryBaseDelay)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}
		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		content := "[sync]\nworkers = 4\nrequest_timeout = \"3s\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Sync.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", config.Sync.Workers)
		}
		if config.Sync.RequestTimeout != 3*time.Second {
			t.Errorf("expected 3s timeout, got %v", config.Sync.RequestTimeout)
		}
		if config.Sync.Candidates != 5 {
			t.Errorf("expected default candidates to survive, got %d", config.Sync.Candidates)
		}
	})

	t.Run("LoadConfig rejects invalid values", func(t *testing.T) {
		tt := []struct {
			name    string
			content string
		}{
			{name: "zero workers", content: "[sync]\nworkers = 0\n"},
			{name: "negative batch", content: "[credentials.youtube]\nbatch_size = -1\n"},
			{name: "bad toml", content: "[sync\nworkers = 1\n"},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				configPath := filepath.Join(t.TempDir(), "config.toml")
				if err := os.WriteFile(configPath, []byte(tc.content), 0644); err != nil {
					t.Fatalf("failed to write config: %v", err)
				}

				_, err := LoadConfig(configPath)
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
