package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/pkg/codec"
)

var convertCmd = &cobra.Command{
	Use:   "convert <pipeline>",
	Short: "Convert a pipeline document between XML and YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		output, _ := cmd.Flags().GetString("output")
		if to == "" && output != "" {
			if c, err := codec.ForPath(output); err == nil {
				to = c.Format()
			}
		}
		if to == "" {
			return fmt.Errorf("target format unknown: use --to xml|yaml")
		}
		c, err := codec.ForFormat(to)
		if err != nil {
			return err
		}

		g, err := loadPipeline(cmd, args[0], editsFrom(cmd))
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return codec.Save(w, g, c)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	addEditFlags(convertCmd)
	convertCmd.Flags().String("to", "", "Target format: xml or yaml (default from --output extension)")
	convertCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}
