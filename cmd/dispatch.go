package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridmerit/app"
	"github.com/kilianp07/gridmerit/pkg/export"
)

var (
	dispatchOut  string
	dispatchSRMC bool
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Plan and dispatch the portfolio once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			if dispatchSRMC {
				svc.Config.Scenario.Optimiser.Type = "srmc"
			}
			_, res, log, err := svc.Dispatch(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: total annual cost %.2f, unserved energy %.3f\n",
				res.RunID, res.Summary.TotalCost, res.Summary.UnservedEnergy)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ASSET\tENERGY\tCF\tANNUAL COST")
			assets := res.Summary.Assets
			sort.SliceStable(assets, func(i, j int) bool { return assets[i].AnnualCost > assets[j].AnnualCost })
			for _, a := range assets {
				fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.2f\n", a.Asset, a.Energy, a.CapacityFactor, a.AnnualCost)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if dispatchOut == "" {
				return nil
			}
			return export.ToFile(dispatchOut, func(w io.Writer, format string) error {
				if format == "csv" {
					return export.WriteDispatchCSV(w, log)
				}
				return export.WriteDispatchJSON(w, log)
			})
		})
	},
}

func init() {
	dispatchCmd.Flags().StringVarP(&dispatchOut, "out", "o", "", "export the dispatch log to a .csv or .json file")
	dispatchCmd.Flags().BoolVar(&dispatchSRMC, "srmc", false, "rank the installed fleet by short-run marginal cost")
	rootCmd.AddCommand(dispatchCmd)
}
