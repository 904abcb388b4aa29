package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph"
	"github.com/aretw0/pipegraph/internal/cli"
)

var watchCmd = &cobra.Command{
	Use:   "watch <pipeline>",
	Short: "Reload a pipeline on every change and show its activation",
	Long: `Development mode: the pipeline document and the catalog directory are
watched, and each change prints the activation transitions it caused.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		debug, _ := cmd.Flags().GetBool("debug")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.RunWatch(sigCtx, cli.WatchOptions{
			Path:    args[0],
			Config:  cfg,
			Edits:   editsFrom(cmd),
			Debug:   debug,
			Version: pipegraph.Version,
			Out:     cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addEditFlags(watchCmd)
}
