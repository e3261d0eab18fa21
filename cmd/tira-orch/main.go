package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "tira-orch",
		Short: "Bulk session orchestrator for Tira reward accounts",
		Long: `tira-orch runs order and checkpoint workflows across ranges of stored
accounts. Each account gets its own isolated session; concurrency is
bounded, progress is tracked per task and streamed to connected clients.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
