package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-daq/measure/calib"
)

func newCalibrateCommand(a *app) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Measure the true sample rate against the mains reference",
		Long: `Captures a deep burst of ambient mains pickup, locates the hum line in
the spectrum, and stores the corrected sample rate. The cached value is
reused by every other command until calibrate is run again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := calib.NewStore(a.cfg.Calibration.CachePath)

			if show {
				rec, err := store.Load()
				if err != nil {
					return err
				}

				printRecord(rec)
				return nil
			}

			ctrl, closeLink, err := a.openController()
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer closeLink()

			if err := store.Invalidate(); err != nil {
				return err
			}

			rec, err := a.measureCalibration(cmd.Context(), ctrl)
			if err != nil {
				return err
			}

			if err := store.Save(rec); err != nil {
				return err
			}

			printRecord(rec)

			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print the cached calibration without measuring")

	return cmd
}

func printRecord(rec calib.Record) {
	fmt.Printf("measured rate  %.2f Hz\n", rec.MeasuredRate)
	fmt.Printf("nominal rate   %.2f Hz\n", rec.NominalRate)
	fmt.Printf("correction     %+.1f ppm\n", (rec.Correction-1)*1e6)
	fmt.Printf("reference      %.1f Hz\n", rec.ReferenceFreq)
	fmt.Printf("SNR            %.1fx\n", rec.SNR)
	fmt.Printf("measured at    %s\n", rec.Timestamp.Format("2006-01-02 15:04:05 MST"))
}
