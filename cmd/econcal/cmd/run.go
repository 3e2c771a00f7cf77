package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"econcal/internal/bootstrap"
	"econcal/internal/pipeline"
	"econcal/pkg/errors"
)

func newRunCmd() *cobra.Command {
	var (
		dir         string
		resultsPath string
		printJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Run the pipeline once over calendar files (.csv, .xlsx) and a results document",
		Long: `Run repairs the given calendar files, merges them into the event store and
persists the model outputs of the results document.

Files are ranked in argument order: a later file wins over an earlier one.
Without arguments the input directory is scanned instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			in, err := buildInput(c, args, dir, resultsPath)
			if err != nil {
				return err
			}
			if len(in.Batches) == 0 && in.Results == nil {
				c.Log.Info("Nothing to ingest")
				return nil
			}

			return runAndReport(c, in, printJSON)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "input directory (default PIPELINE_INPUT_DIR)")
	cmd.Flags().StringVar(&resultsPath, "results", "", "results document (default PIPELINE_RESULTS_FILE)")
	cmd.Flags().BoolVar(&printJSON, "json", false, "print the run report as JSON")
	return cmd
}

func newPublishResultsCmd() *cobra.Command {
	var printJSON bool

	cmd := &cobra.Command{
		Use:   "publish-results <results.json>",
		Short: "Persist stage metrics and live forecasts without ingesting calendar files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			out, err := pipeline.ReadRunOutput(args[0])
			if err != nil {
				return err
			}
			return runAndReport(c, pipeline.Input{Results: out}, printJSON)
		},
	}

	cmd.Flags().BoolVar(&printJSON, "json", false, "print the run report as JSON")
	return cmd
}

func buildInput(c *bootstrap.Container, files []string, dir, resultsPath string) (pipeline.Input, error) {
	var (
		in  pipeline.Input
		err error
	)

	if len(files) > 0 {
		if in.Batches, err = pipeline.LoadFiles(files); err != nil {
			return in, err
		}
	} else {
		if dir == "" {
			dir = c.Config.Pipeline.InputDir
		}
		if in, err = pipeline.LoadDir(dir); err != nil {
			return in, err
		}
	}

	if resultsPath == "" && in.Results == nil {
		resultsPath = c.Config.Pipeline.ResultsFile
	}
	if resultsPath != "" {
		if in.Results, err = pipeline.ReadRunOutput(resultsPath); err != nil {
			return in, err
		}
	}
	return in, nil
}

func runAndReport(c *bootstrap.Container, in pipeline.Input, printJSON bool) error {
	report, err := c.Runner.Run(c.Context, in)
	if printJSON && report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return errors.Wrap(encErr, "encode run report")
		}
	}
	return err
}
