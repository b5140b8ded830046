package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"perpsim/feed"
)

var replayCmd = &cobra.Command{
	Use:   "replay <prices.csv>",
	Short: "Replay a CSV price series through the engine",
	Long: `Replays "time,mid" rows (RFC3339 timestamps) through the full tick
pipeline against the persisted account and prints the final summary.
Deterministic: the same file against the same state always produces
the same ledger.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	src, err := feed.NewReplayFromFile(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	n := 0
	for {
		t, ok := src.Next()
		if !ok {
			break
		}
		if err := s.eng.Tick(t.Mid, t.Time); err != nil {
			return fmt.Errorf("tick %d: %w", n, err)
		}
		n++
	}
	s.save()

	log.Infof("replayed %d ticks", n)
	printAccount(s.eng.Snapshot())
	printPosition(s.eng.Snapshot())
	return nil
}
