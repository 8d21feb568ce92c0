package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
admin:
  email: "admin@whispr.com"
`)
	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"port", conf.Server.Port, "9090"},
		{"mode", conf.Server.Mode, "debug"},
		{"provider", conf.LLM.Provider, "openai"},
		{"llm timeout", conf.LLM.TimeoutSeconds, 30},
		{"admin id", conf.Admin.ID, "hardcoded_admin"},
		{"session max age", conf.Admin.SessionMaxAgeHour, 24},
		{"kafka topic", conf.Kafka.Topic, "whispr-feedback"},
		{"es index", conf.Elasticsearch.IndexName, "whispr_posts"},
		{"minio expiry", conf.MinIO.URLExpireMinute, 60},
		{"helplines", len(conf.Helplines), len(DefaultHelplines)},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8080"
admin:
  password_hash: ""
helplines:
  - name: "Local line"
    number: "112"
    description: "Emergency services."
`)
	t.Setenv("WHISPR_SERVER_PORT", "7000")
	t.Setenv("WHISPR_ADMIN_PASSWORD_HASH", "$2a$10$abc")

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if conf.Server.Port != "7000" {
		t.Errorf("Server.Port = %q, want env override", conf.Server.Port)
	}
	if conf.Admin.PasswordHash != "$2a$10$abc" {
		t.Errorf("Admin.PasswordHash = %q, want env override", conf.Admin.PasswordHash)
	}
	if len(conf.Helplines) != 1 || conf.Helplines[0].Number != "112" {
		t.Errorf("Helplines = %+v", conf.Helplines)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() error = nil, want failure for missing file")
	}
}
