package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/cli"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/observability"
)

// loadPipeline builds the graph of the document at path with the configured
// catalog. Debug runs log every activation transition.
func loadPipeline(cmd *cobra.Command, path string, edits cli.Edits) (*graph.Graph, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	catalog, _, err := cli.OpenCatalog(cfg)
	if err != nil {
		return nil, err
	}
	var hooks domain.ActivationHooks
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		hooks = observability.LogHooks(logger)
	}
	return cli.LoadPipeline(cmd.Context(), path, catalog, edits, logger, hooks)
}
