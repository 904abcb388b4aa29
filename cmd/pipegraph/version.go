package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pipegraph",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pipegraph version %s\n", strings.TrimSpace(pipegraph.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
