// Package export writes dispatch logs and installation details as CSV or
// JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/gridmerit/core/dispatch"
	"github.com/kilianp07/gridmerit/core/model"
)

// DispatchDocument is the JSON layout of a dispatch log.
type DispatchDocument struct {
	Start              time.Time            `json:"start"`
	Order              []string             `json:"order"`
	Demand             []float64            `json:"demand"`
	Residual           []float64            `json:"residual"`
	Dispatch           map[string][]float64 `json:"dispatch"`
	AnnualCost         map[string]float64   `json:"annual_cost,omitempty"`
	LevelizedCost      map[string]float64   `json:"levelized_cost,omitempty"`
	HourlyCost         map[string][]float64 `json:"hourly_cost,omitempty"`
	UndefinedLevelized []string             `json:"undefined_levelized,omitempty"`
}

// WriteDispatchJSON writes the dispatch log to w in JSON format.
func WriteDispatchJSON(w io.Writer, l *dispatch.Log) error {
	enc := json.NewEncoder(w)
	return enc.Encode(DispatchDocument{
		Start:              l.Demand.Start,
		Order:              l.Order,
		Demand:             l.Demand.Values,
		Residual:           l.Residual,
		Dispatch:           l.Dispatch,
		AnnualCost:         l.AnnualCost,
		LevelizedCost:      l.LevelizedCost,
		HourlyCost:         l.HourlyCost,
		UndefinedLevelized: l.UndefinedLevelized,
	})
}

// WriteDispatchCSV writes one row per hour: timestamp, demand, every asset
// in dispatch order, residual.
func WriteDispatchCSV(w io.Writer, l *dispatch.Log) error {
	cw := csv.NewWriter(w)
	header := append([]string{"timestamp", "demand"}, l.Order...)
	if err := cw.Write(append(header, "residual")); err != nil {
		return err
	}
	rec := make([]string, len(header)+1)
	for i, d := range l.Demand.Values {
		rec[0] = l.Demand.TimeAt(i).Format(time.RFC3339)
		rec[1] = formatFloat(d)
		for j, name := range l.Order {
			var v float64
			if col := l.Dispatch[name]; i < len(col) {
				v = col[i]
			}
			rec[2+j] = formatFloat(v)
		}
		rec[len(rec)-1] = formatFloat(l.Residual[i])
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInstallationJSON writes the installation details to w in JSON format.
func WriteInstallationJSON(w io.Writer, details []model.InstallationDetail) error {
	enc := json.NewEncoder(w)
	return enc.Encode(details)
}

// WriteInstallationCSV writes the installation details to w in CSV format.
func WriteInstallationCSV(w io.Writer, details []model.InstallationDetail) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "name", "technology", "kind", "capacity", "deploy_at"}); err != nil {
		return err
	}
	for _, d := range details {
		rec := []string{
			strconv.Itoa(d.Rank),
			d.Name,
			d.Technology,
			d.KindName,
			formatFloat(d.Capacity),
			formatFloat(d.DeployAt),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToFile creates path and writes to it with the writer matching its
// extension: write is called with "csv" or "json".
func ToFile(path string, write func(w io.Writer, format string) error) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported export format: %s", format)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
