package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/corpus"
	"github.com/tofu-daddy/longevity-hub/internal/runlog"
)

var flagStatsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus size and recent ingestion runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := corpus.Load(config.CorpusPath())
		if err != nil {
			return fmt.Errorf("reading corpus: %w", err)
		}
		fmt.Printf("Corpus: %s\n", config.CorpusPath())
		fmt.Printf("Records: %d\n", len(records))

		rl, err := runlog.Open(config.RunLogPath())
		if err != nil {
			return fmt.Errorf("opening run log: %w", err)
		}
		defer rl.Close()

		entries, err := rl.Recent(flagStatsLimit)
		if err != nil {
			return fmt.Errorf("reading run log: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		fmt.Println("\nRecent runs:")
		for _, e := range entries {
			suffix := ""
			if e.DryRun {
				suffix = " (dry run)"
			}
			fmt.Printf("  %s  +%d record(s) in %s%s\n",
				e.RanAt.Format("2006-01-02 15:04"), e.NewRecords, e.Duration.Round(time.Millisecond), suffix)
			for _, s := range e.Sources {
				if s.Err != "" {
					fmt.Printf("    %-10s failed: %s\n", s.Key, s.Err)
				} else {
					fmt.Printf("    %-10s %d candidate(s)\n", s.Key, s.Candidates)
				}
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&flagStatsLimit, "limit", 10, "number of runs to show")
}
