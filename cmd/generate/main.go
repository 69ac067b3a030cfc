package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "generate",
	Short: "Operator tools for the chat server",
	Long: `generate runs the configured response generator outside the server
and mints development session tokens.

Examples:
  generate prompt "What would be a good name for a sock company?"
  generate prompt --image "a red cube"
  generate token --sub dev-user --name Dev`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(tokenCmd)
}
