package cmd

import (
	"github.com/spf13/cobra"

	"econcal/internal/bootstrap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Watch the input directory on a schedule and serve health, metrics and read endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := bootstrap.NewContainer(cmd.Context())
			if err := c.InitPipeline(); err != nil {
				c.Close()
				return err
			}
			c.InitApplication()

			if err := c.Scheduler.Start(c.Context); err != nil {
				c.Close()
				return err
			}

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- c.HTTPServer.Start()
			}()

			c.Log.Infow("✓ econcal is running",
				"inbox", c.Config.Pipeline.InputDir,
				"interval", c.Config.Pipeline.Interval,
				"addr", c.Config.Metrics.Addr,
			)

			var err error
			select {
			case <-c.Context.Done():
				c.Log.Info("Shutdown signal received")
			case err = <-serverErr:
				if err != nil {
					c.Log.Errorw("HTTP server stopped", "error", err)
				}
			}

			c.Close()
			c.Log.Info("Shutdown complete")
			return err
		},
	}
}
