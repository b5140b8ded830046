package cmd

import (
	"github.com/spf13/cobra"

	"perpsim/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "perpsim",
	Short: "A single-symbol perpetual-futures paper-trading engine",
	Long: `Perpsim simulates a perpetual-futures account against a synthetic
order book: market and limit orders, maker/taker fees, funding,
margin accounting and a two-stage liquidation policy, with every
balance change recorded in an auditable ledger.

Run an interactive session with a random-walk price feed, replay a
CSV of prices deterministically, or inspect the persisted ledger.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON; defaults built in)")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}
