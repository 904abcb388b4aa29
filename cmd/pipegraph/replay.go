package main

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/cli"
	"github.com/aretw0/pipegraph/pkg/inspect"
)

var replayCmd = &cobra.Command{
	Use:   "replay <pipeline> <record>",
	Short: "Step through an activation record",
	Long: `Lists the steps of an activation record taken on the pipeline.
--filter keeps the steps whose label ("+ node:plug") matches a regular
expression. --step prints the active elements after one step.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadPipeline(cmd, args[0], cli.Edits{})
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		check := g
		if force {
			check = nil
		}
		in, err := inspect.OpenFile(args[1], check)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if cmd.Flags().Changed("step") {
			step, _ := cmd.Flags().GetInt("step")
			if step < 0 || step >= in.Len() {
				return fmt.Errorf("step %d out of range [0, %d)", step, in.Len())
			}
			fmt.Fprintf(out, "After step %d (%s):\n", step, in.Label(step))
			active := make([]string, 0)
			for k := range in.State(step) {
				active = append(active, k)
			}
			sort.Strings(active)
			for _, k := range active {
				fmt.Fprintf(out, "  %s\n", k)
			}
			return nil
		}

		steps := make([]int, 0, in.Len())
		if expr, _ := cmd.Flags().GetString("filter"); expr != "" {
			re, err := regexp.Compile(expr)
			if err != nil {
				return fmt.Errorf("invalid filter: %w", err)
			}
			steps = in.Filter(re)
		} else {
			for i := 0; i < in.Len(); i++ {
				steps = append(steps, i)
			}
		}
		for _, i := range steps {
			fmt.Fprintf(out, "%4d  pass %-3d %s\n", i, in.Step(i).Pass, in.Label(i))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().String("filter", "", "Regular expression matched against step labels")
	replayCmd.Flags().Int("step", 0, "Print the state after this step")
	replayCmd.Flags().Bool("force", false, "Skip the pipeline id check")
}
