package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lunamall/lunamall/internal/app/coordinator"
	"github.com/lunamall/lunamall/internal/daemon"
	"github.com/lunamall/lunamall/internal/infra/sqlite"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lunamall",
	Short: "LunaMall rewards engine",
	Long: `LunaMall is the points ledger and reward allocation engine behind the
mall's loyalty features: daily check-ins, reward tasks, lottery draws,
blind boxes, the points mall, and invitation rewards.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default ~/.lunamall/config.toml)")
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore loads the config and opens the datastore it points at.
func openStore() (daemon.Config, *sqlite.DB, error) {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	dir, err := cfg.DataDir()
	if err != nil {
		return cfg, nil, err
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		return cfg, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, db, nil
}

// newCoordinator builds a coordinator from the configured reward parameters.
func newCoordinator(db *sqlite.DB, cfg daemon.Config) *coordinator.Coordinator {
	return coordinator.New(db, coordinator.Config{
		InviterReward:   cfg.Rewards.InviterReward,
		InviteeBonus:    cfg.Rewards.InviteeBonus,
		BoxValidityDays: cfg.Rewards.BoxValidityDays,
		BlindBoxPoolID:  cfg.Rewards.BlindBoxPoolID,
		DrawAttempts:    cfg.Rewards.DrawAttempts,
	})
}
