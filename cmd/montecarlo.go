package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridmerit/app"
)

var (
	mcIterations int
	mcWorkers    int
)

var montecarloCmd = &cobra.Command{
	Use:   "montecarlo",
	Short: "Repeat refresh and dispatch and report the mean annual system cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			rep, err := svc.MonteCarlo(ctx, mcIterations, mcWorkers)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "iterations: %d\nmean annual system cost: %.2f\nstd dev: %.2f\n",
				len(rep.Outcomes), rep.MeanCost, rep.StdCost)
			return nil
		})
	},
}

func init() {
	montecarloCmd.Flags().IntVarP(&mcIterations, "iterations", "n", 0, "number of iterations (config default when 0)")
	montecarloCmd.Flags().IntVarP(&mcWorkers, "workers", "w", 0, "concurrent iterations (config default when 0)")
	rootCmd.AddCommand(montecarloCmd)
}
