// Package main is the kpiboard command: the scoring service, an offline
// scorer and a load generator.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kpiboard",
	Short: "Sales team KPI scoring service",
	Long: "kpiboard scores every salesperson on ten 0-100 KPIs, combines them into a 0-1000 composite " +
		"with a level label, ranks the team and serves the leaderboard, heatmap and team summary over HTTP.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
