package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/cli"
	"github.com/aretw0/pipegraph/pkg/codec"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/session"
)

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "Manage the stored pipelines served by 'serve' and 'mcp'",
}

var pipelinesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored pipelines",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(m *session.Manager) error {
			names, err := m.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No stored pipelines found.")
				return nil
			}
			fmt.Fprintln(out, "Stored Pipelines:")
			for _, n := range names {
				fmt.Fprintln(out, "- "+n)
			}
			return nil
		})
	},
}

var pipelinesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored pipeline document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		c, err := codec.ForFormat(format)
		if err != nil {
			return err
		}
		return withSessions(cmd, func(m *session.Manager) error {
			data, err := m.Export(cmd.Context(), args[0], c)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		})
	},
}

var pipelinesRmCmd = &cobra.Command{
	Use:   "rm <name>...",
	Short: "Remove one or more stored pipelines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(m *session.Manager) error {
			var failed bool
			for _, name := range args {
				if err := m.Delete(cmd.Context(), name); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", name, err)
					failed = true
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed pipeline '%s'\n", name)
			}
			if failed {
				return fmt.Errorf("some pipelines were not removed")
			}
			return nil
		})
	},
}

func withSessions(cmd *cobra.Command, fn func(*session.Manager) error) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	m, closeStore, err := cli.NewManager(cfg, logger, domain.ActivationHooks{})
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(m)
}

func init() {
	rootCmd.AddCommand(pipelinesCmd)
	pipelinesCmd.AddCommand(pipelinesLsCmd, pipelinesShowCmd, pipelinesRmCmd)
	pipelinesShowCmd.Flags().String("format", "yaml", "Output format: xml or yaml")
}
