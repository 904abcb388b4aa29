package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "pipegraph",
	Short: "pipegraph inspects and serves pipeline graphs",
	Long: `pipegraph loads pipeline documents (XML or YAML), computes which nodes,
plugs and links are active, and exposes the result on the command line,
over HTTP and through the Model Context Protocol.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./"+cli.DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().String("catalog", "", "Directory of module declarations (overrides the config)")
}

// setup loads the configuration and logger shared by every command.
func setup(cmd *cobra.Command) (cli.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	cfg, err := cli.LoadConfig(path)
	if err != nil {
		return cli.Config{}, nil, err
	}
	if cmd.Flags().Changed("catalog") {
		cfg.Catalog.Dir, _ = cmd.Flags().GetString("catalog")
	}
	return cfg, cli.NewLogger(cfg.Log, debug), nil
}

func addEditFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("set", nil, "Set a plug value, e.g. --set bet.frac=0.4 (repeatable)")
	cmd.Flags().StringArray("select", nil, "Select a switch alternative, e.g. --select method=spm (repeatable)")
	cmd.Flags().StringArray("group", nil, "Select a group of a selection parameter, e.g. --group mode=fast (repeatable)")
	cmd.Flags().StringSlice("disable", nil, "Disable nodes")
}

func editsFrom(cmd *cobra.Command) cli.Edits {
	var e cli.Edits
	e.Values, _ = cmd.Flags().GetStringArray("set")
	e.Selections, _ = cmd.Flags().GetStringArray("select")
	e.Groups, _ = cmd.Flags().GetStringArray("group")
	e.Disable, _ = cmd.Flags().GetStringSlice("disable")
	return e
}
