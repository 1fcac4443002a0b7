package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockBackend is an in-memory ConfigBackend.
type mockBackend struct {
	strs map[string]string
	ints map[string]int
}

func newMockBackend() *mockBackend {
	return &mockBackend{strs: map[string]string{}, ints: map[string]int{}}
}

func (m *mockBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strs[key]
	return v, ok, nil
}

func (m *mockBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *mockBackend) SetString(key, val string) error { m.strs[key] = val; return nil }
func (m *mockBackend) SetInt(key string, val int) error  { m.ints[key] = val; return nil }
func (m *mockBackend) Delete(key string) error {
	delete(m.strs, key)
	delete(m.ints, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func writeDotenv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaults verifies all default values are applied when nothing is configured.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMockBackend(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Reasoner.Provider != "auto" {
		t.Errorf("Reasoner.Provider = %q, want auto", cfg.Reasoner.Provider)
	}
	if cfg.Reasoner.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("Reasoner.BaseURL = %q", cfg.Reasoner.BaseURL)
	}
	if cfg.Reasoner.Model != "llama-3.1-8b-instant" {
		t.Errorf("Reasoner.Model = %q", cfg.Reasoner.Model)
	}
	if cfg.Catalog.SeedCount != 300 || cfg.Catalog.Seed != 42 {
		t.Errorf("Catalog = %+v, want 300 products with seed 42", cfg.Catalog)
	}
	if cfg.SessionTTL() != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL())
	}
	if !strings.HasSuffix(cfg.Storage.DataDir, "shopper") && cfg.Storage.DataDir != "shopper-data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

// TestBackendValues verifies that backend values override defaults.
func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.ints["server.port"] = 9000
	b.strs["reasoner.provider"] = "rules"
	b.strs["storage.data_dir"] = "/tmp/shopper-test"
	b.strs["session.ttl"] = "5m"

	cfg, err := loadWith(b, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Reasoner.Provider != "rules" || cfg.Storage.DataDir != "/tmp/shopper-test" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SessionTTL() != 5*time.Minute {
		t.Errorf("SessionTTL = %v, want 5m", cfg.SessionTTL())
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.ints["server.port"] = 9000
	t.Setenv("SHOPPER_SERVER_PORT", "9100")
	t.Setenv("SHOPPER_REASONER_API_KEY", "env-key")

	cfg, err := loadWith(b, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Reasoner.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Reasoner.APIKey)
	}
}

// TestDotenv verifies .env entries apply but never beat real environment variables.
func TestDotenv(t *testing.T) {
	clearEnv(t)
	path := writeDotenv(t, "SHOPPER_REASONER_API_KEY=dotenv-key\nSHOPPER_LOG_LEVEL=DEBUG\n")
	t.Setenv("SHOPPER_LOG_LEVEL", "warn")

	cfg, err := loadWith(newMockBackend(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Reasoner.APIKey != "dotenv-key" {
		t.Errorf("APIKey = %q, want dotenv-key", cfg.Reasoner.APIKey)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn from the environment", cfg.Log.Level)
	}
	if os.Getenv("SHOPPER_REASONER_API_KEY") != "" {
		t.Error(".env leaked into the process environment")
	}
}

func TestDotenvMissingFileIgnored(t *testing.T) {
	clearEnv(t)
	if _, err := loadWith(newMockBackend(), filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestMissingAPIKeyForRemote verifies a clear error when the remote reasoner has no key.
func TestMissingAPIKeyForRemote(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPPER_REASONER_PROVIDER", "remote")

	_, err := loadWith(newMockBackend(), "")
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if got := err.Error(); !strings.Contains(got, "missing required config") {
		t.Errorf("error = %q", got)
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name, env, value string
	}{
		{"unknown provider", "SHOPPER_REASONER_PROVIDER", "azure"},
		{"port out of range", "SHOPPER_SERVER_PORT", "70000"},
		{"bad log level", "SHOPPER_LOG_LEVEL", "loud"},
		{"bad base url", "SHOPPER_REASONER_BASE_URL", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.value)
			if _, err := loadWith(newMockBackend(), ""); err == nil {
				t.Errorf("%s=%q accepted", tt.env, tt.value)
			}
		})
	}
}

func TestUnparseableIntEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPPER_SERVER_PORT", "eighty")

	cfg, err := loadWith(newMockBackend(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default 8000", cfg.Server.Port)
	}
}

func TestSessionTTL_InvalidFallsBack(t *testing.T) {
	cfg := Config{Session: SessionConfig{TTL: "soon"}}
	if cfg.SessionTTL() != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL())
	}
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopper", "config.json")
	b := newFileBackend(path)

	if err := setKeyWith(b, "server.port", "8123"); err != nil {
		t.Fatalf("set port: %v", err)
	}
	if err := setKeyWith(b, "reasoner.model", "llama-3.3-70b-versatile"); err != nil {
		t.Fatalf("set model: %v", err)
	}

	reloaded := newFileBackend(path)
	if port, ok, err := reloaded.GetInt("server.port"); err != nil || !ok || port != 8123 {
		t.Errorf("port = %d, %v, %v", port, ok, err)
	}
	if model, ok, _ := reloaded.GetString("reasoner.model"); !ok || model != "llama-3.3-70b-versatile" {
		t.Errorf("model = %q", model)
	}
}

func TestSetKey_Errors(t *testing.T) {
	b := newMockBackend()
	if err := setKeyWith(b, "reasoner.api_key", "x"); err == nil || !strings.Contains(err.Error(), "SHOPPER_REASONER_API_KEY") {
		t.Errorf("secret: %v", err)
	}
	if err := setKeyWith(b, "server.port", "abc"); err == nil {
		t.Error("non-integer port accepted")
	}
	if err := setKeyWith(b, "nope", "1"); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestShowAll_MasksSecret(t *testing.T) {
	cfg := defaults()
	cfg.Reasoner.APIKey = "gsk_abcdefghijklmnop"

	var found bool
	for _, k := range ShowAll(cfg) {
		if k.Key != "reasoner.api_key" {
			continue
		}
		found = true
		if strings.Contains(k.Value, "efghijkl") || k.Value == "" {
			t.Errorf("secret shown as %q", k.Value)
		}
	}
	if !found {
		t.Error("reasoner.api_key not listed")
	}
	if len(ValidKeys()) != len(specs)-1 {
		t.Errorf("ValidKeys = %v", ValidKeys())
	}
}
