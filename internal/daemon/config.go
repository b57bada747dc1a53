package daemon

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// addrEnv overrides the configured listen address, e.g. "0.0.0.0:9000".
const addrEnv = "LUNAMALL_ADDR"

// Config is the daemon configuration, loaded from ~/.lunamall/config.toml.
// Missing keys fall back to defaults, so a partial file is fine.
type Config struct {
	API     APIConfig     `toml:"api"`
	Store   StoreConfig   `toml:"store"`
	Rewards RewardsConfig `toml:"rewards"`
}

type APIConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

type StoreConfig struct {
	DataDir string `toml:"data_dir"` // empty = ~/.lunamall
}

// RewardsConfig tunes the reward engine. Points values are integral; there
// are no fractional points anywhere in the ledger.
type RewardsConfig struct {
	InviterReward   int64  `toml:"inviter_reward"`
	InviteeBonus    int64  `toml:"invitee_bonus"`
	BoxValidityDays int    `toml:"box_validity_days"`
	BlindBoxPoolID  string `toml:"blindbox_pool_id"`
	DrawAttempts    int    `toml:"draw_attempts"`
}

func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:          "127.0.0.1",
			Port:          8420,
			EnableMetrics: true,
		},
		Store: StoreConfig{
			DataDir: "",
		},
		Rewards: RewardsConfig{
			InviterReward:   50,
			InviteeBonus:    20,
			BoxValidityDays: 7,
			BlindBoxPoolID:  "blindbox-default",
			DrawAttempts:    3,
		},
	}
}

// ConfigDir returns the directory holding config.toml and the datastore.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lunamall"
	}
	return filepath.Join(home, ".lunamall")
}

// Load reads path into a Config layered over the defaults. A missing file is
// not an error: the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = filepath.Join(ConfigDir(), "config.toml")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg, err := cfg.applyEnv()
	if err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv layers environment overrides on top of the loaded config. The
// environment wins over the file so deployments can retarget the listener
// without editing config.toml.
func (c Config) applyEnv() (Config, error) {
	addr := os.Getenv(addrEnv)
	if addr == "" {
		return c, nil
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return c, fmt.Errorf("%s=%q: %w", addrEnv, addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return c, fmt.Errorf("%s=%q: bad port: %w", addrEnv, addr, err)
	}
	if host != "" {
		c.API.Host = host
	}
	c.API.Port = port
	return c, nil
}

func (c Config) validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Rewards.InviterReward < 0 || c.Rewards.InviteeBonus < 0 {
		return fmt.Errorf("rewards must not be negative")
	}
	if c.Rewards.DrawAttempts < 1 {
		return fmt.Errorf("rewards.draw_attempts must be at least 1")
	}
	return nil
}

// DataDir resolves the datastore directory, creating it if needed.
func (c Config) DataDir() (string, error) {
	dir := c.Store.DataDir
	if dir == "" {
		dir = filepath.Join(ConfigDir(), "data")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// Addr is the host:port the API server binds to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
