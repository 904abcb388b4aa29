package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/cli"
	"github.com/aretw0/pipegraph/internal/presentation/tui"
)

var activationCmd = &cobra.Command{
	Use:   "activation <pipeline>",
	Short: "Show which nodes and plugs of a pipeline are active",
	Long: `Loads the pipeline, applies the edits given as flags and prints the
resulting activation as a table, or as JSON with --json.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadPipeline(cmd, args[0], editsFrom(cmd))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			state, err := g.ActivationState()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		}
		md, err := tui.ActivationReport(g)
		if err != nil {
			return err
		}
		return cli.PrintMarkdown(out, md)
	},
}

func init() {
	rootCmd.AddCommand(activationCmd)
	addEditFlags(activationCmd)
	activationCmd.Flags().Bool("json", false, "Print the activation state as JSON")
}
