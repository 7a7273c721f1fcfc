package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "boardbot",
	Short: "Chat bot for task boards",
	Long:  "boardbot answers chat commands on Telegram, Discord or a local console and walks users through their task boards with prompts, pickers and pagers.",
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
