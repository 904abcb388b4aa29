package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/cli"
	"github.com/aretw0/pipegraph/internal/presentation/tui"
	"github.com/aretw0/pipegraph/pkg/inspect"
)

var checkCmd = &cobra.Command{
	Use:   "check <pipeline>",
	Short: "Check the files used by the active nodes of a pipeline",
	Long: `Reports file inputs of active nodes that do not exist and file outputs
that already exist and would be overwritten. Exits non-zero on findings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadPipeline(cmd, args[0], editsFrom(cmd))
		if err != nil {
			return err
		}
		report, err := inspect.CheckFiles(g, nil)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else if err := cli.PrintMarkdown(out, tui.FileReport(report)); err != nil {
			return err
		}
		if !report.OK() {
			return errors.New("file check found problems")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addEditFlags(checkCmd)
	checkCmd.Flags().Bool("json", false, "Print the report as JSON")
}
