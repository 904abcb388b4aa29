package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pipeline>",
	Short: "Check that a pipeline document builds and its activation converges",
	Long: `Validate builds the pipeline and computes its activation. Structural
warnings (mandatory inputs left unfed, nodes that reach no exported output)
are printed; with --strict they fail the command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadPipeline(cmd, args[0], editsFrom(cmd))
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if _, err := g.ActivationState(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		findings, err := validator.Lint(g)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if strict, _ := cmd.Flags().GetBool("strict"); strict {
			if err := validator.Error(findings); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
		}
		out := cmd.OutOrStdout()
		for _, f := range findings {
			fmt.Fprintf(out, "⚠️  %s\n", f)
		}
		fmt.Fprintf(out, "Pipeline '%s' is valid! ✅ (%d nodes, %d links)\n", g.Name(), len(g.Nodes()), len(g.Links()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addEditFlags(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Fail on structural warnings")
}
