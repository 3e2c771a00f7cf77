package cmd

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"econcal/internal/domain/calendar"
	"econcal/internal/repair"
	"econcal/pkg/errors"
)

func newExportCmd() *cobra.Command {
	var (
		currency string
		fromStr  string
		toStr    string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write canonical events as CSV in the calendar input layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := calendar.Filter{Currency: currency}
			var err error
			if fromStr != "" {
				if filter.From, err = time.Parse(time.DateOnly, fromStr); err != nil {
					return errors.Wrapf(errors.ErrInvalidInput, "bad --from %q", fromStr)
				}
			}
			if toStr != "" {
				if filter.To, err = time.Parse(time.DateOnly, toStr); err != nil {
					return errors.Wrapf(errors.ErrInvalidInput, "bad --to %q", toStr)
				}
			}
			if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
				return errors.Wrap(errors.ErrInvalidInput, "--from must be before --to")
			}

			c, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			events, err := c.Repos.Events.List(c.Context, filter)
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return errors.Wrapf(err, "create %s", output)
				}
				defer f.Close()
				w = f
			}

			if err := repair.WriteCSV(w, events); err != nil {
				return err
			}
			c.Log.Infow("✓ Exported events", "count", len(events), "output", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "only this currency")
	cmd.Flags().StringVar(&fromStr, "from", "", "first date, YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&toStr, "to", "", "last date, YYYY-MM-DD (exclusive)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
