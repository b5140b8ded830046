package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"perpsim/journal"
)

var ledgerCSVPath string

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "List the persisted ledger and audit the balance",
	Long: `Lists every persisted balance-affecting entry oldest first, then the
summed balance. With --csv the entries are also exported.`,
	Args: cobra.NoArgs,
	RunE: runLedger,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the persisted account state and ledger",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(resetCmd)
	ledgerCmd.Flags().StringVar(&ledgerCSVPath, "csv", "", "export entries to a CSV file")
}

func runLedger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListLedger(time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Printf("%s  %-16s %16s  %s\n", r.Time.Format(time.RFC3339), r.Type, r.Delta.StringFixed(0), r.Reference)
	}

	balance, err := j.Balance()
	if err != nil {
		return err
	}
	fmt.Printf("%d entries, balance %s\n", len(recs), balance.StringFixed(0))

	if ledgerCSVPath != "" {
		if err := journal.ExportCSVFile(ledgerCSVPath, recs); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", ledgerCSVPath)
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.ResetState(); err != nil {
		return err
	}
	fmt.Println("persisted state cleared")
	return nil
}
