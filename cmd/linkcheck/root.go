package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for linkcheck.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkcheck",
		Short: "Check web sites and HTML files for broken links",
		Long: `linkcheck checks the links of web sites and local HTML files.

It crawls internal pages recursively with a pool of workers, limits the
number of connections to each host, honors robots.txt and reports broken
links in text, JSON, Markdown, CSV, Excel or a SQLite database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log all checked URLs and enable debug logging")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
