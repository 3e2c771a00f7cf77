package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"econcal/internal/bootstrap"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "econcal",
		Short: "Economic calendar ingestion pipeline",
		Long: `econcal repairs scraped economic calendar exports, merges them into the
canonical Postgres event store and records model outputs.

Configuration is read from the environment (and a local .env file).`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newMigrateCmd(),
		newRunCmd(),
		newPublishResultsCmd(),
		newServeCmd(),
		newExportCmd(),
		newWatchRunsCmd(),
		newVersionCmd(),
	)

	return cmd
}

// Execute builds the command tree and runs it with ctx
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// openStore loads config and connects to the stores. The caller owns Close.
func openStore(ctx context.Context) (*bootstrap.Container, error) {
	c := bootstrap.NewContainer(ctx)
	if err := c.InitConfig(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.InitInfrastructure(); err != nil {
		c.Close()
		return nil, err
	}
	c.InitRepositories()
	return c, nil
}

// openPipeline is openStore plus the sinks and the runner
func openPipeline(ctx context.Context) (*bootstrap.Container, error) {
	c := bootstrap.NewContainer(ctx)
	if err := c.InitPipeline(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
