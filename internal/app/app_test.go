package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

// setTestEnv はテスト用の一時SQLiteを使う環境変数を設定し、そのDB URLを返す。
func setTestEnv(t *testing.T) string {
	t.Helper()
	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "card.db")
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DATABASE_URL", dbURL)
	t.Setenv("LISTEN_ADDR", "127.0.0.1")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("CARD_API_BASE_URL", "http://127.0.0.1:1/api")
	t.Setenv("CARD_API_TIMEOUT", "1s")
	t.Setenv("DECK_COUNT", "1")
	t.Setenv("RATE_LIMIT_GENERAL", "120")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("NATS_URL", "")
	return dbURL
}

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	orig := slog.Default()
	defer slog.SetDefault(orig)

	dbURL := setTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.DatabaseURL != dbURL {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, dbURL)
	}

	// グローバルロガーがJSON出力に設定されていること
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_LogLevelApplied(t *testing.T) {
	orig := slog.Default()
	defer slog.SetDefault(orig)

	setTestEnv(t)
	t.Setenv("LOG_LEVEL", "error")

	var buf bytes.Buffer
	if _, err := Init(&buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	slog.Default().Warn("suppressed")
	if buf.Len() != 0 {
		t.Errorf("LOG_LEVEL=error でWARNが出力された: %s", buf.String())
	}
}

func TestInit_WithInvalidConfig_ReturnsError(t *testing.T) {
	orig := slog.Default()
	defer slog.SetDefault(orig)

	setTestEnv(t)
	t.Setenv("DECK_COUNT", "0")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestPrintSchemaFailureBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintSchemaFailureBanner(&buf)

	want := "=================================\n" +
		"Database unable to be initialized. Now exiting...\n" +
		"=================================\n"
	if buf.String() != want {
		t.Errorf("banner = %q, want %q", buf.String(), want)
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	tests := []struct {
		in       string
		mustHide string
		mustKeep string
	}{
		{"postgres://blackjack:s3cret@db:5432/blackjack?sslmode=disable", "s3cret", "db:5432"},
		{"sqlite://card.db", "", "card.db"},
	}

	for _, tt := range tests {
		got := maskDatabaseURL(tt.in)
		if tt.mustHide != "" && strings.Contains(got, tt.mustHide) {
			t.Errorf("maskDatabaseURL(%q) = %q, 認証情報が含まれている", tt.in, got)
		}
		if !strings.Contains(got, tt.mustKeep) {
			t.Errorf("maskDatabaseURL(%q) = %q, %q を含むべき", tt.in, got, tt.mustKeep)
		}
	}
}

func TestHealthcheckURL(t *testing.T) {
	tests := []struct {
		addr, port, want string
	}{
		{"", "", "http://127.0.0.1:8080/health"},
		{"0.0.0.0", "9000", "http://127.0.0.1:9000/health"},
		{"10.0.0.5", "8080", "http://10.0.0.5:8080/health"},
		{"::1", "8080", "http://[::1]:8080/health"},
	}
	for _, tt := range tests {
		if got := healthcheckURL(tt.addr, tt.port); got != tt.want {
			t.Errorf("healthcheckURL(%q, %q) = %q, want %q", tt.addr, tt.port, got, tt.want)
		}
	}
}
