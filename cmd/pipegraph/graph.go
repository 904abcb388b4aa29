package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/presentation/graph"
	"github.com/aretw0/pipegraph/pkg/inspect"
)

var graphCmd = &cobra.Command{
	Use:   "graph <pipeline>",
	Short: "Export the pipeline as a Mermaid flowchart",
	Long: `Outputs a Mermaid diagram (graph LR) of the pipeline. Inactive and
disabled nodes are styled. With --record and --step, the activation shown is
the one replayed up to that step of an activation record.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadPipeline(cmd, args[0], editsFrom(cmd))
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if path, _ := cmd.Flags().GetString("record"); path != "" {
			in, err := inspect.OpenFile(path, g)
			if err != nil {
				return err
			}
			step, _ := cmd.Flags().GetInt("step")
			if step < 0 || step >= in.Len() {
				step = in.Len() - 1
			}
			if step < 0 {
				return fmt.Errorf("record %s has no steps", path)
			}
			overlay = &graph.Overlay{Activation: topLevel(in.State(step))}
			overlay.Current, _, _ = strings.Cut(in.Step(step).Node, ".")
		}

		out, err := graph.GenerateMermaid(g, overlay)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

// topLevel keeps the replayed state of top-level nodes only.
func topLevel(state map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k, v := range state {
		if k != "" && !strings.ContainsAny(k, ".:") {
			out[k] = v
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(graphCmd)
	addEditFlags(graphCmd)
	graphCmd.Flags().String("record", "", "Activation record to replay")
	graphCmd.Flags().Int("step", -1, "Step of the record to show (default last)")
}
