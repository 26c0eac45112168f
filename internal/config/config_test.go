package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Groq.BaseURL != DefaultGroqBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.Groq.BaseURL, DefaultGroqBaseURL)
	}
	if cfg.Groq.Model != DefaultGroqModel {
		t.Errorf("Model = %q, want %q", cfg.Groq.Model, DefaultGroqModel)
	}
	if cfg.Groq.Temperature == nil || *cfg.Groq.Temperature != float32(DefaultTemperature) {
		t.Errorf("Temperature = %v, want %v", cfg.Groq.Temperature, DefaultTemperature)
	}
	if cfg.MaxUploadBytes() != 200<<20 {
		t.Errorf("MaxUploadBytes() = %d", cfg.MaxUploadBytes())
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
server:
  port: 9000
  maxUploadMB: 5
groq:
  model: llama-3.1-8b-instant
  timeout: 15s
database:
  driver: postgres
  host: db
  port: 5432
  user: app
  password: secret
  name: analyzer
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Groq.Model != "llama-3.1-8b-instant" {
		t.Errorf("Model = %q", cfg.Groq.Model)
	}
	if cfg.Groq.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Groq.Timeout)
	}
	want := "host=db port=5432 user=app password=secret dbname=analyzer sslmode=disable"
	if got := cfg.PostgresDSN(); got != want {
		t.Errorf("PostgresDSN() = %q, want %q", got, want)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "server: [")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_ZeroTemperature(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "groq:\n  temperature: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Groq.Temperature == nil || *cfg.Groq.Temperature != 0 {
		t.Errorf("Temperature = %v, want explicit 0", cfg.Groq.Temperature)
	}
}

func TestResolveAPIKey_Precedence(t *testing.T) {
	dir := t.TempDir()
	secrets := writeFile(t, dir, "secrets.yaml", "GROQ_API_KEY: from-secrets\n")

	tests := []struct {
		name    string
		file    string
		apiKey  string
		env     string
		want    string
		wantErr bool
	}{
		{name: "secrets file wins", file: secrets, apiKey: "inline", env: "from-env", want: "from-secrets"},
		{name: "config value when no secrets file", file: filepath.Join(dir, "none.yaml"), apiKey: "inline", env: "from-env", want: "inline"},
		{name: "env reference", apiKey: "ENV=GROQ_API_KEY", env: "from-env", want: "from-env"},
		{name: "var expansion", apiKey: "${GROQ_API_KEY}", env: "from-env", want: "from-env"},
		{name: "environment fallback", env: "from-env", want: "from-env"},
		{name: "nothing configured", want: ""},
		{name: "inline value is trimmed", apiKey: "gsk_abc\n", env: "from-env", want: "gsk_abc"},
		{name: "blank inline value falls through", apiKey: "  \n", env: "from-env", want: "from-env"},
		{name: "traversal rejected", apiKey: "FILE=../etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(APIKeyName, tt.env)
			cfg := &Config{}
			cfg.Secrets.File = tt.file
			cfg.Groq.APIKey = tt.apiKey

			got, err := cfg.ResolveAPIKey()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadSecret_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "key.txt", "  file-key\n")
	got, err := loadSecret("FILE=" + path)
	if err != nil {
		t.Fatalf("loadSecret() error = %v", err)
	}
	if got != "file-key" {
		t.Errorf("loadSecret() = %q, want %q", got, "file-key")
	}
}
