package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/timeline"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of timeline",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "timeline version %s\n", strings.TrimSpace(timeline.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
