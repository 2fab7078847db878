package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridmerit/app"
	"github.com/kilianp07/gridmerit/core/model"
	"github.com/kilianp07/gridmerit/pkg/export"
)

var optimiseOut string

var optimiseCmd = &cobra.Command{
	Use:   "optimise",
	Short: "Rank technologies and print the deployment",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			_, groups, err := svc.Optimise()
			if err != nil {
				return err
			}
			details := groups.Details()
			if err := printDetails(cmd.OutOrStdout(), details); err != nil {
				return err
			}
			if optimiseOut == "" {
				return nil
			}
			return export.ToFile(optimiseOut, func(w io.Writer, format string) error {
				if format == "csv" {
					return export.WriteInstallationCSV(w, details)
				}
				return export.WriteInstallationJSON(w, details)
			})
		})
	},
}

func init() {
	optimiseCmd.Flags().StringVarP(&optimiseOut, "out", "o", "", "export the deployment to a .csv or .json file")
	rootCmd.AddCommand(optimiseCmd)
}

func printDetails(w io.Writer, details []model.InstallationDetail) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tKIND\tDEPLOY AT\tCAPACITY")
	for _, d := range details {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%.3f\n", d.Rank, d.Name, d.KindName, d.DeployAt, d.Capacity)
	}
	return tw.Flush()
}
