package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/kpiboard/internal/loadgen"
	"github.com/okian/kpiboard/pkg/logger"
)

var loadgenCfg loadgen.Config

var loadgenCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Push synthetic snapshots to a running service and verify the leaderboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		stats, err := loadgen.Run(cmd.Context(), &loadgenCfg)
		fmt.Fprintf(cmd.OutOrStdout(),
			"generated %d  submitted %d  accepted %d  duplicate %d  failed %d  verified %d  mismatched %d  took %s\n",
			stats.Generated, stats.Submitted, stats.Accepted, stats.Duplicate, stats.Failed,
			stats.Verified, stats.Mismatched, stats.Duration.Round(time.Millisecond))
		return err
	},
}

func init() {
	f := loadgenCmd.Flags()
	f.StringVar(&loadgenCfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&loadgenCfg.People, "people", 1000, "Number of distinct salespeople")
	f.IntVar(&loadgenCfg.Snapshots, "snapshots", 3, "Snapshots per salesperson")
	f.IntVar(&loadgenCfg.Duplicates, "duplicates", 100, "Snapshot ids to re-send")
	f.IntVar(&loadgenCfg.TopN, "top", 50, "Leaderboard entries to verify")
	f.IntVar(&loadgenCfg.Workers, "workers", runtime.NumCPU()*2, "Concurrent HTTP workers")
	f.DurationVar(&loadgenCfg.Timeout, "timeout", 10*time.Second, "Per-request timeout")
	f.DurationVar(&loadgenCfg.WaitTimeout, "wait", time.Minute, "How long to wait for scoring to finish")
	f.Uint64Var(&loadgenCfg.Seed, "seed", 0, "Generator seed (0 picks one)")
	rootCmd.AddCommand(loadgenCmd)
}
