/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PageSize != 4096 {
		t.Errorf("expected default page_size 4096, got %d", cfg.PageSize)
	}
	if cfg.BufferPoolPages != 128 {
		t.Errorf("expected default buffer_pool_pages 128, got %d", cfg.BufferPoolPages)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level 'info', got %q", cfg.LogLevel)
	}
	if cfg.LogJSON {
		t.Error("expected default log_json false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"valid", DefaultConfig(), false},
		{"bad page size", &Config{DataDir: "d", PageSize: 8192, BufferPoolPages: 128, LogLevel: "info"}, true},
		{"zero buffer pool", &Config{DataDir: "d", PageSize: 4096, BufferPoolPages: 0, LogLevel: "info"}, true},
		{"bad log level", &Config{DataDir: "d", PageSize: 4096, BufferPoolPages: 128, LogLevel: "verbose"}, true},
		{"empty data dir", &Config{DataDir: "", PageSize: 4096, BufferPoolPages: 128, LogLevel: "info"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `# test configuration
data_dir = "/tmp/flydb-data"
page_size = 4096
buffer_pool_pages = 256
sync_on_commit = false
log_level = "debug"
log_json = true
`
	configPath := filepath.Join(tmpDir, "flydb.conf")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	cfg := mgr.Get()
	if cfg.DataDir != "/tmp/flydb-data" {
		t.Errorf("expected data_dir override, got %q", cfg.DataDir)
	}
	if cfg.BufferPoolPages != 256 {
		t.Errorf("expected buffer_pool_pages 256, got %d", cfg.BufferPoolPages)
	}
	if cfg.SyncOnCommit {
		t.Error("expected sync_on_commit false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %q", cfg.LogLevel)
	}
	if !cfg.LogJSON {
		t.Error("expected log_json true")
	}
	if cfg.ConfigFile != configPath {
		t.Errorf("expected ConfigFile %q, got %q", configPath, cfg.ConfigFile)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvBufferPoolPages, "64")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogJSON, "true")

	mgr := NewManager()
	mgr.LoadFromEnv()

	cfg := mgr.Get()
	if cfg.BufferPoolPages != 64 {
		t.Errorf("expected buffer_pool_pages 64 from env, got %d", cfg.BufferPoolPages)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log_level warn from env, got %q", cfg.LogLevel)
	}
	if !cfg.LogJSON {
		t.Error("expected log_json true from env")
	}
}

func TestConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `buffer_pool_pages = 200
log_level = "info"
`
	configPath := filepath.Join(tmpDir, "flydb.conf")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv(EnvBufferPoolPages, "42")

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	mgr.LoadFromEnv()

	cfg := mgr.Get()
	if cfg.BufferPoolPages != 42 {
		t.Errorf("expected env to win over file, got %d", cfg.BufferPoolPages)
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/flydb"
	text := cfg.String()
	if !strings.Contains(text, `data_dir = "/var/lib/flydb"`) {
		t.Error("expected String() output to include data_dir")
	}
	if !strings.Contains(text, "page_size = 4096") {
		t.Error("expected String() output to include page_size")
	}
}

func TestSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.BufferPoolPages = 77

	configPath := filepath.Join(tmpDir, "subdir", "flydb.conf")
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if mgr.Get().BufferPoolPages != 77 {
		t.Errorf("expected buffer_pool_pages 77, got %d", mgr.Get().BufferPoolPages)
	}
}

func TestReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "flydb.conf")
	if err := os.WriteFile(configPath, []byte("buffer_pool_pages = 100\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	reloaded := false
	mgr.OnReload(func(c *Config) { reloaded = true })

	if err := os.WriteFile(configPath, []byte("buffer_pool_pages = 150\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config file: %v", err)
	}
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if !reloaded {
		t.Error("expected OnReload callback to fire")
	}
	if mgr.Get().BufferPoolPages != 150 {
		t.Errorf("expected buffer_pool_pages 150 after reload, got %d", mgr.Get().BufferPoolPages)
	}
}
