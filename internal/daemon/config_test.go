package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8420 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8420)
	}
	if !cfg.API.EnableMetrics {
		t.Error("API.EnableMetrics should be true by default")
	}
	if cfg.Rewards.InviterReward != 50 {
		t.Errorf("Rewards.InviterReward = %d, want 50", cfg.Rewards.InviterReward)
	}
	if cfg.Rewards.InviteeBonus != 20 {
		t.Errorf("Rewards.InviteeBonus = %d, want 20", cfg.Rewards.InviteeBonus)
	}
	if cfg.Rewards.BoxValidityDays != 7 {
		t.Errorf("Rewards.BoxValidityDays = %d, want 7", cfg.Rewards.BoxValidityDays)
	}
	if cfg.Rewards.DrawAttempts != 3 {
		t.Errorf("Rewards.DrawAttempts = %d, want 3", cfg.Rewards.DrawAttempts)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_PartialFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[api]
port = 9000

[rewards]
inviter_reward = 100
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want default", cfg.API.Host)
	}
	if cfg.Rewards.InviterReward != 100 {
		t.Errorf("Rewards.InviterReward = %d, want 100", cfg.Rewards.InviterReward)
	}
	if cfg.Rewards.InviteeBonus != 20 {
		t.Errorf("Rewards.InviteeBonus = %d, want default 20", cfg.Rewards.InviteeBonus)
	}
}

func TestLoad_EnvOverridesListenAddr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[api]\nhost = \"10.0.0.5\"\nport = 9000\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv(addrEnv, "0.0.0.0:9100")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Addr(); got != "0.0.0.0:9100" {
		t.Errorf("Addr() = %q, want %q", got, "0.0.0.0:9100")
	}

	// A bare port keeps the file's host.
	t.Setenv(addrEnv, ":9200")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Addr(); got != "10.0.0.5:9200" {
		t.Errorf("Addr() = %q, want %q", got, "10.0.0.5:9200")
	}
}

func TestLoad_RejectsBadEnvAddr(t *testing.T) {
	t.Setenv(addrEnv, "no-port-here")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for malformed address")
	}

	t.Setenv(addrEnv, "127.0.0.1:70000")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"port out of range", "[api]\nport = 70000\n"},
		{"negative reward", "[rewards]\ninvitee_bonus = -5\n"},
		{"zero draw attempts", "[rewards]\ndraw_attempts = 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
