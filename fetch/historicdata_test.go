package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnldd/trend/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func TestHistoricData(t *testing.T) {
	cfg := &HistoricDataConfig{
		FilePath: "../testdata/historicdata.json",
		Logger:   &log.Logger,
	}

	// Ensure historic data can be initialized.
	historicData, err := NewHistoricData(cfg)
	assert.NoError(t, err)
	assert.Equal(t, historicData.Markets(), []string{"AAPL", "MSFT"})
	assert.Equal(t, historicData.Len(), 34)

	loc, err := time.LoadLocation(shared.NewYorkLocation)
	assert.NoError(t, err)
	start := time.Date(2025, time.March, 12, 9, 30, 0, 0, loc)
	assert.True(t, historicData.FetchStartTime().Equal(start))
	assert.True(t, historicData.FetchEndTime().Equal(start.Add(time.Minute*165)))
	historicData.LogRange()

	ctx := context.Background()

	// Ensure no bars are served before the first advance.
	assert.True(t, historicData.Current().IsZero())
	bars, err := historicData.FetchBars(ctx, "AAPL", 30)
	assert.NoError(t, err)
	assert.Equal(t, len(bars), 0)

	// Ensure only bars at or before the cursor are served.
	assert.True(t, historicData.Advance())
	bars, err = historicData.FetchBars(ctx, "AAPL", 30)
	assert.NoError(t, err)
	assert.Equal(t, len(bars), 1)
	assert.Equal(t, bars[0].Close, float64(100))
	assert.Equal(t, bars[0].Market, "AAPL")

	bars, err = historicData.FetchBars(ctx, "MSFT", 30)
	assert.NoError(t, err)
	assert.Equal(t, len(bars), 0)

	// Ensure the served window is capped by the limit and ends at the cursor.
	for i := 0; i < 30; i++ {
		assert.True(t, historicData.Advance())
	}

	bars, err = historicData.FetchBars(ctx, "AAPL", 30)
	assert.NoError(t, err)
	assert.Equal(t, len(bars), 30)
	assert.Equal(t, bars[0].Close, float64(105))
	assert.Equal(t, bars[29].Close, float64(133))
	assert.True(t, bars[29].Date.Equal(historicData.Current()))
	assert.NoError(t, shared.ValidateBars(bars))

	bars, err = historicData.FetchBars(ctx, "MSFT", 5)
	assert.NoError(t, err)
	assert.Equal(t, len(bars), 5)
	assert.True(t, bars[4].Date.Equal(historicData.Current()))

	// Ensure the served window is a copy.
	bars[0].Close = 0
	again, err := historicData.FetchBars(ctx, "MSFT", 5)
	assert.NoError(t, err)
	assert.Equal(t, again[0].Close, float64(50))

	// Ensure markets without new bars keep serving their latest window.
	for historicData.Advance() {
	}

	assert.True(t, historicData.Current().Equal(historicData.FetchEndTime()))
	bars, err = historicData.FetchBars(ctx, "AAPL", 30)
	assert.NoError(t, err)
	assert.Equal(t, bars[29].Close, float64(120))
	assert.True(t, bars[29].Date.Before(historicData.Current()))
	assert.False(t, historicData.Advance())

	// Ensure invalid fetches error.
	_, err = historicData.FetchBars(ctx, "TSLA", 30)
	assert.Error(t, err)
	_, err = historicData.FetchBars(ctx, "AAPL", 0)
	assert.Error(t, err)
}

func TestHistoricDataMarketSubset(t *testing.T) {
	historicData, err := NewHistoricData(&HistoricDataConfig{
		FilePath: "../testdata/historicdata.json",
		Markets:  []string{"MSFT"},
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)
	assert.Equal(t, historicData.Markets(), []string{"MSFT"})
	assert.Equal(t, historicData.Len(), 33)

	_, err = NewHistoricData(&HistoricDataConfig{
		FilePath: "../testdata/historicdata.json",
		Markets:  []string{"TSLA"},
		Logger:   &log.Logger,
	})
	assert.Error(t, err)
}

func TestHistoricDataInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data string) string {
		path := filepath.Join(dir, name)
		err := os.WriteFile(path, []byte(data), 0o600)
		assert.NoError(t, err)
		return path
	}

	tests := []struct {
		name     string
		path     string
		wantErrs []error
	}{
		{
			name: "missing file",
			path: filepath.Join(dir, "missing.json"),
		},
		{
			name: "malformed json",
			path: write("malformed.json", `{"AAPL": [`),
		},
		{
			name: "no markets",
			path: write("empty.json", `{}`),
		},
		{
			name: "bad date",
			path: write("date.json", `{"AAPL": [{"date": "12/03/2025", "close": 1}]}`),
		},
		{
			name:     "non positive close",
			path:     write("close.json", `{"AAPL": [{"date": "2025-03-12 09:30:00", "close": 0}]}`),
			wantErrs: []error{shared.ErrInvalidInput},
		},
		{
			name: "duplicate timestamps",
			path: write("dupes.json", `{"AAPL": [
				{"date": "2025-03-12 09:30:00", "close": 1},
				{"date": "2025-03-12 09:30:00", "close": 2}
			]}`),
			wantErrs: []error{shared.ErrInvalidInput},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewHistoricData(&HistoricDataConfig{
				FilePath: test.path,
				Logger:   &log.Logger,
			})
			assert.Error(t, err)
			for _, want := range test.wantErrs {
				assert.True(t, errors.Is(err, want))
			}
		})
	}
}
