// Package datasource loads demand series, resource profiles and the
// technology catalogue from local files.
package datasource

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/gridmerit/core/demand"
)

// ErrMissingColumns is returned when a CSV lacks a mandatory column.
var ErrMissingColumns = errors.New("missing mandatory columns")

// DemandFile is the JSON layout of a demand series.
type DemandFile struct {
	Name   string    `json:"name"`
	Units  string    `json:"units"`
	Start  time.Time `json:"start"`
	Demand []float64 `json:"demand"`
}

// SeriesOptions name the series and the CSV column read.
type SeriesOptions struct {
	Name   string
	Units  string
	Column string
	// Start is used when the file carries no timestamps.
	Start time.Time
}

func (o *SeriesOptions) setDefaults(path string) {
	if o.Column == "" {
		o.Column = "demand"
	}
	if o.Name == "" {
		o.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
}

// LoadSeries reads a JSON or CSV series file. Leap-year samples of 8784
// hours are stripped of Feb 29.
func LoadSeries(path string, opts SeriesOptions) (demand.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return demand.Series{}, err
	}
	defer f.Close()
	opts.setDefaults(path)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return DecodeSeriesJSON(f)
	case ".csv":
		return DecodeSeriesCSV(f, opts)
	default:
		return demand.Series{}, fmt.Errorf("unsupported series format: %s", ext)
	}
}

// LoadDemand reads a demand file and wraps it with the given number of
// periods.
func LoadDemand(path string, periods int) (demand.Demand, error) {
	s, err := LoadSeries(path, SeriesOptions{})
	if err != nil {
		return demand.Demand{}, fmt.Errorf("load demand %s: %w", path, err)
	}
	d := demand.NewDemand(s, periods)
	if err := d.Validate(); err != nil {
		return demand.Demand{}, err
	}
	return d, nil
}

// DecodeSeriesJSON decodes a DemandFile.
func DecodeSeriesJSON(r io.Reader) (demand.Series, error) {
	var df DemandFile
	if err := json.NewDecoder(r).Decode(&df); err != nil {
		return demand.Series{}, fmt.Errorf("decode demand: %w", err)
	}
	if df.Start.IsZero() {
		df.Start = defaultStart
	}
	return newSeries(df.Name, df.Units, df.Start, df.Demand)
}

var defaultStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// DecodeSeriesCSV reads the column named opts.Column. An optional
// "timestamp" column (RFC 3339) sets the start of the series.
func DecodeSeriesCSV(r io.Reader, opts SeriesOptions) (demand.Series, error) {
	if opts.Column == "" {
		opts.Column = "demand"
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return demand.Series{}, fmt.Errorf("read header: %w", err)
	}
	col, tsCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case strings.ToLower(opts.Column):
			col = i
		case "timestamp":
			tsCol = i
		}
	}
	if col < 0 {
		return demand.Series{}, fmt.Errorf("%w: %s", ErrMissingColumns, opts.Column)
	}
	start := opts.Start
	var values []float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return demand.Series{}, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			return demand.Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		if tsCol >= 0 && len(values) == 0 {
			ts, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[tsCol]))
			if err != nil {
				return demand.Series{}, fmt.Errorf("line %d: %w", line, err)
			}
			start = ts
		}
		values = append(values, v)
	}
	if start.IsZero() {
		start = defaultStart
	}
	return newSeries(opts.Name, opts.Units, start, values)
}

func newSeries(name, units string, start time.Time, values []float64) (demand.Series, error) {
	return demand.NewSeries(name, units, start, demand.StripLeapDay(values, start.Year()))
}
