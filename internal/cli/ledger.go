package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd)
	ledgerCmd.AddCommand(ledgerRecomputeCmd)
	rootCmd.AddCommand(grantCmd)

	grantCmd.Flags().StringP("reason", "r", "manual grant", "Reason recorded on the ledger entry")
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and repair the points ledger",
}

// ─── ledger verify ──────────────────────────────────────────────────────────

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify [ACCOUNT_ID]",
	Short: "Check cached balances against the entry log",
	Long:  `Recompute each account's balance from its ledger entries and compare it with the cached projection. No account argument checks every account.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerVerify,
}

func runLedgerVerify(cmd *cobra.Command, args []string) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	accounts := args
	if len(accounts) == 0 {
		accounts, err = db.ListAccountIDs(ctx)
		if err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ACCOUNT\tSTATUS")

	bad := 0
	for _, id := range accounts {
		if err := db.VerifyAccount(ctx, id); err != nil {
			bad++
			fmt.Fprintf(w, "%s\t%v\n", id, err)
			continue
		}
		fmt.Fprintf(w, "%s\tok\n", id)
	}
	if bad > 0 {
		w.Flush()
		return fmt.Errorf("%d account(s) out of sync; run 'lunamall ledger recompute'", bad)
	}
	return nil
}

// ─── ledger recompute ───────────────────────────────────────────────────────

var ledgerRecomputeCmd = &cobra.Command{
	Use:   "recompute [ACCOUNT_ID]",
	Short: "Rebuild cached balances from the entry log",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerRecompute,
}

func runLedgerRecompute(cmd *cobra.Command, args []string) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	accounts := args
	if len(accounts) == 0 {
		accounts, err = db.ListAccountIDs(ctx)
		if err != nil {
			return err
		}
	}

	for _, id := range accounts {
		balance, err := db.RecomputeBalance(ctx, id)
		if err != nil {
			return fmt.Errorf("recompute %s: %w", id, err)
		}
		fmt.Printf("%s: balance %d\n", id, balance)
	}
	return nil
}

// ─── grant ──────────────────────────────────────────────────────────────────

var grantCmd = &cobra.Command{
	Use:   "grant ACCOUNT_ID DELTA",
	Short: "Apply a manual points adjustment",
	Long:  `Credit or debit an account by DELTA points. The adjustment is an ordinary ledger entry and shows up in the account's history.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runGrant,
}

func runGrant(cmd *cobra.Command, args []string) error {
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || delta == 0 {
		return fmt.Errorf("DELTA must be a non-zero integer, got %q", args[1])
	}
	reason, _ := cmd.Flags().GetString("reason")

	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	coord := newCoordinator(db, cfg)
	entry, err := coord.AdminAdjust(cmd.Context(), args[0], delta, reason)
	if err != nil {
		return err
	}
	fmt.Printf("entry %d: %s %+d (balance %d)\n", entry.ID, entry.AccountID, entry.Delta, entry.BalanceAfter)
	return nil
}
