package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/cli"
	pgraph "github.com/aretw0/pipegraph/pkg/graph"
)

var recordCmd = &cobra.Command{
	Use:   "record <pipeline>",
	Short: "Record the activation transitions of a pipeline",
	Long: `Computes the activation of the pipeline and writes every transition,
pass by pass, in the activation record format read by "replay".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadPipeline(cmd, args[0], cli.Edits{})
		if err != nil {
			return err
		}
		// attached before the edits so their recomputes are recorded too
		r := pgraph.NewRecorder(g)
		if err := editsFrom(cmd).Apply(g); err != nil {
			return err
		}
		if _, err := g.ActivationState(); err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if output, _ := cmd.Flags().GetString("output"); output != "" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		_, err = r.Record().WriteTo(w)
		return err
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
	addEditFlags(recordCmd)
	recordCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}
