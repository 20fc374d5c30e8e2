package bot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_WithValidToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DiscordToken != "test-token-123" {
		t.Errorf("expected token %q, got %q", "test-token-123", cfg.DiscordToken)
	}
}

func TestLoadConfig_WithEmptyToken(t *testing.T) {
	// Clear the environment variable
	t.Setenv("DISCORD_TOKEN", "")

	_, err := LoadConfig()
	if err == nil {
		t.Error("expected error for missing token, got nil")
	}
}

func TestLoadConfig_ReadsDotEnvFile(t *testing.T) {
	// t.Setenv registers the restore; the variable itself must be absent so
	// the .env value applies.
	t.Setenv("DISCORD_TOKEN", "")
	os.Unsetenv("DISCORD_TOKEN")

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("DISCORD_TOKEN=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Chdir(dir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DiscordToken != "from-dotenv" {
		t.Errorf("expected token %q, got %q", "from-dotenv", cfg.DiscordToken)
	}
}

func TestLoadConfig_MissingDotEnvFile(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DiscordToken != "env-token" {
		t.Errorf("expected token %q, got %q", "env-token", cfg.DiscordToken)
	}
}
