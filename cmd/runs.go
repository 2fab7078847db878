package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridmerit/app/plugins"
	"github.com/kilianp07/gridmerit/config"
	dispatchlog "github.com/kilianp07/gridmerit/core/dispatch/logging"
)

var (
	runsScenario string
	runsAsset    string
	runsSince    string
	runsUntil    string
	runsJSON     bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded dispatch runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := dispatchlog.RunQuery{Scenario: runsScenario, Asset: runsAsset}
		var err error
		if q.Start, err = parseTime(runsSince); err != nil {
			return fmt.Errorf("--since: %w", err)
		}
		if q.End, err = parseTime(runsUntil); err != nil {
			return fmt.Errorf("--until: %w", err)
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		store, err := plugins.NewRunStore(cfg.Logging)
		if err != nil {
			return fmt.Errorf("run store: %w", err)
		}
		defer store.Close()
		recs, err := store.Query(cmd.Context(), q)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if runsJSON {
			if recs == nil {
				recs = []dispatchlog.RunRecord{}
			}
			return json.NewEncoder(out).Encode(recs)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tTIME\tSCENARIO\tTOTAL COST\tUNSERVED\tERROR")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.3f\t%s\n",
				r.RunID, r.Timestamp.Format(time.RFC3339), r.Scenario, r.TotalCost, r.Unserved, r.Error)
		}
		return tw.Flush()
	},
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func init() {
	runsCmd.Flags().StringVar(&runsScenario, "scenario", "", "only runs of this scenario")
	runsCmd.Flags().StringVar(&runsAsset, "asset", "", "only runs that dispatched this asset")
	runsCmd.Flags().StringVar(&runsSince, "since", "", "only runs at or after this RFC 3339 time")
	runsCmd.Flags().StringVar(&runsUntil, "until", "", "only runs at or before this RFC 3339 time")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print the records as JSON")
	rootCmd.AddCommand(runsCmd)
}
