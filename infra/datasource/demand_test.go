package datasource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmerit/core/demand"
)

func TestDecodeSeriesJSON(t *testing.T) {
	in := `{"name":"nem","units":"MW","start":"2023-01-01T00:00:00Z","demand":[3,1,2]}`
	s, err := DecodeSeriesJSON(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "nem", s.Name)
	assert.Equal(t, "MW", s.Units)
	assert.Equal(t, []float64{3, 1, 2}, s.Values)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), s.Start)

	_, err = DecodeSeriesJSON(strings.NewReader(`{"demand":[1,-1]}`))
	assert.ErrorIs(t, err, demand.ErrInvalidValue)
}

func TestDecodeSeriesCSV(t *testing.T) {
	in := "timestamp,demand\n2024-03-01T00:00:00Z,5\n2024-03-01T01:00:00Z,6.5\n"
	s, err := DecodeSeriesCSV(strings.NewReader(in), SeriesOptions{Name: "d"})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6.5}, s.Values)
	assert.Equal(t, 2024, s.Start.Year())
	assert.Equal(t, time.March, s.Start.Month())

	_, err = DecodeSeriesCSV(strings.NewReader("load\n1\n"), SeriesOptions{})
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = DecodeSeriesCSV(strings.NewReader("demand\nabc\n"), SeriesOptions{})
	assert.Error(t, err)
}

func TestDecodeSeriesCSVStripsLeapDay(t *testing.T) {
	var b strings.Builder
	b.WriteString("demand\n")
	for i := 0; i < demand.HoursPerYear+24; i++ {
		b.WriteString("1\n")
	}
	s, err := DecodeSeriesCSV(strings.NewReader(b.String()), SeriesOptions{Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, demand.HoursPerYear, s.Len())

	_, err = DecodeSeriesCSV(strings.NewReader(b.String()), SeriesOptions{Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)})
	assert.ErrorIs(t, err, demand.ErrSeriesTooLong)
}

func TestLoadDemand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demand.csv")
	require.NoError(t, os.WriteFile(path, []byte("demand\n4\n8\n6\n"), 0o644))

	d, err := LoadDemand(path, 3)
	require.NoError(t, err)
	assert.Equal(t, "demand", d.Name)
	assert.Equal(t, 8.0, d.Peak())
	assert.Equal(t, 3, d.Periods)

	_, err = LoadSeries(filepath.Join(dir, "demand.txt"), SeriesOptions{})
	assert.Error(t, err)
}
