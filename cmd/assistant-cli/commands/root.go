// Package commands implements the assistant CLI commands.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	verbose    bool
	noColor    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Big Dipper sales assistant - grounded product Q&A from the terminal",
	Long: `The assistant resolves Big Dipper product references (model codes, catalog
URLs or pasted record JSON) against the vendor catalog and answers sales
questions grounded strictly on the official product records.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine, real env vars take over.
		_ = godotenv.Load()
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
