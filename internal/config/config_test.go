package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			BasePath: "/data/videos",
			TempPath: "/data/temp",
		},
		Engine: EngineConfig{
			YtDlpPath:       "yt-dlp",
			DownloadTimeout: 10 * time.Minute,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() should pass, got %v", err)
	}
}

func TestConfig_Validate_MissingStoragePath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.BasePath = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing STORAGE_PATH")
	}
}

func TestConfig_Validate_MissingTempPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.TempPath = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing STORAGE_TEMP_PATH")
	}
}

func TestConfig_Validate_MissingYtDlpPath(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.YtDlpPath = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for missing YTDLP_PATH")
	}
}

func TestConfig_Validate_NonPositiveTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.DownloadTimeout = 0

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for zero DOWNLOAD_TIMEOUT")
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{
			name: "default",
			cfg:  ServerConfig{Host: "0.0.0.0", Port: 8574},
			want: "0.0.0.0:8574",
		},
		{
			name: "localhost",
			cfg:  ServerConfig{Host: "localhost", Port: 8080},
			want: "localhost:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStorageConfig_HistoryDBPath(t *testing.T) {
	cfg := StorageConfig{BasePath: "/data/videos"}
	if got := cfg.HistoryDBPath(); got != filepath.Join("/data/videos", "downloads.db") {
		t.Errorf("HistoryDBPath() = %q", got)
	}

	cfg.HistoryPath = "/var/lib/vidfetch/history.db"
	if got := cfg.HistoryDBPath(); got != "/var/lib/vidfetch/history.db" {
		t.Errorf("HistoryDBPath() = %q, want explicit path", got)
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  host: "localhost"
  port: 8080
storage:
  base_path: "/yaml/videos"
  temp_path: "/yaml/temp"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	// envconfig applies defaults and overrides YAML, so pin env values to
	// match the file where we want to observe the YAML values.
	t.Setenv("SERVER_HOST", "localhost")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("STORAGE_PATH", "/yaml/videos")
	t.Setenv("STORAGE_TEMP_PATH", "/yaml/temp")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Host != "localhost" {
		t.Errorf("Host = %q, want %q", cfg.Server.Host, "localhost")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Storage.BasePath != "/yaml/videos" {
		t.Errorf("BasePath = %q, want %q", cfg.Storage.BasePath, "/yaml/videos")
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
storage:
  base_path: "/yaml/videos"
  temp_path: "/yaml/temp"
engine:
  ytdlp_path: "/usr/local/bin/yt-dlp"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("STORAGE_PATH", "/env/videos")
	t.Setenv("YTDLP_PATH", "/opt/yt-dlp")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.BasePath != "/env/videos" {
		t.Errorf("BasePath should be from env, got %q", cfg.Storage.BasePath)
	}
	if cfg.Engine.YtDlpPath != "/opt/yt-dlp" {
		t.Errorf("YtDlpPath should be from env, got %q", cfg.Engine.YtDlpPath)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("STORAGE_PATH", "/data/test")
	t.Setenv("DOWNLOAD_TIMEOUT", "3m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.BasePath != "/data/test" {
		t.Errorf("BasePath = %q, want %q", cfg.Storage.BasePath, "/data/test")
	}
	if cfg.Engine.DownloadTimeout != 3*time.Minute {
		t.Errorf("DownloadTimeout = %v, want 3m", cfg.Engine.DownloadTimeout)
	}
	// Defaults fill the rest.
	if cfg.Server.Port != 8574 {
		t.Errorf("Port = %d, want default 8574", cfg.Server.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
server:
  host: "localhost
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load should fail for invalid YAML")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load should fail for nonexistent file")
	}
}
