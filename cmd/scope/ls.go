package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-daq/dataset"
)

func newListCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List archived captures",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := dataset.Scan(a.cfg.DataDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(entries) == 0 {
				fmt.Fprintf(out, "no captures under %s\n", a.cfg.DataDir)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "path\tcaptured\tsamples\trate\tnotes")

			for _, e := range entries {
				rate := e.CalibratedRate
				if rate <= 0 {
					rate = e.NominalRate
				}

				captured := "-"
				if !e.Meta.CapturedAt.IsZero() {
					captured = e.Meta.CapturedAt.Format("2006-01-02 15:04:05")
				}

				fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f Hz\t%s\n",
					e.Path, captured, e.SampleCount, rate, e.Meta.Notes)
			}

			return tw.Flush()
		},
	}

	return cmd
}
