package fetch

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/dnldd/trend/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// FilePath is the filepath to the historic market data.
	FilePath string
	// Markets restricts the loaded markets, all markets in the file are loaded when empty.
	Markets []string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// HistoricData represents historic market data replayed one timestamp at a time.
type HistoricData struct {
	cfg      *HistoricDataConfig
	markets  []string
	bars     map[string][]shared.Bar
	timeline []time.Time
	cursor   int
	mtx      sync.RWMutex
}

// Ensure historic data implements the BarFetcher interface.
var _ shared.BarFetcher = (*HistoricData)(nil)

// loadHistoricData loads the historic data bytes from the provided file path.
func loadHistoricData(filepath string) (*gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %v", filepath, err)
	}

	if !gjson.ValidBytes(readb) {
		return nil, fmt.Errorf("historic data file '%s' is not valid json", filepath)
	}

	b := gjson.ParseBytes(readb)

	return &b, nil
}

// NewHistoricData initializes a new historic data source. The data is expected to be a
// json object keyed by market, each holding an array of bars.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	b, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %v", err)
	}

	loc, err := time.LoadLocation(shared.NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york location: %v", err)
	}

	markets := cfg.Markets
	if len(markets) == 0 {
		b.ForEach(func(key, _ gjson.Result) bool {
			markets = append(markets, key.String())
			return true
		})
	}

	if len(markets) == 0 {
		return nil, fmt.Errorf("no markets found in historic data")
	}

	historicData := &HistoricData{
		cfg:     cfg,
		markets: markets,
		bars:    make(map[string][]shared.Bar, len(markets)),
		cursor:  -1,
	}

	for _, market := range markets {
		data := b.Get(gjson.Escape(market))
		if !data.Exists() {
			return nil, fmt.Errorf("no historic data found for %s", market)
		}

		bars, err := shared.ParseBars(data.Array(), market, loc)
		if err != nil {
			return nil, fmt.Errorf("parsing %s bars: %v", market, err)
		}

		slices.SortFunc(bars, func(a, b shared.Bar) int {
			return a.Date.Compare(b.Date)
		})

		err = shared.ValidateBars(bars)
		if err != nil {
			return nil, fmt.Errorf("validating %s bars: %w", market, err)
		}

		historicData.bars[market] = bars
		for idx := range bars {
			historicData.timeline = append(historicData.timeline, bars[idx].Date)
		}
	}

	slices.SortFunc(historicData.timeline, func(a, b time.Time) int {
		return a.Compare(b)
	})
	historicData.timeline = slices.CompactFunc(historicData.timeline, func(a, b time.Time) bool {
		return a.Equal(b)
	})

	return historicData, nil
}

// Advance moves the replay cursor to the next timestamp. It returns false once the data
// is exhausted.
func (h *HistoricData) Advance() bool {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if h.cursor+1 >= len(h.timeline) {
		return false
	}

	h.cursor++
	return true
}

// Current returns the timestamp of the replay cursor. The zero time is returned before
// the first advance.
func (h *HistoricData) Current() time.Time {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	if h.cursor < 0 {
		return time.Time{}
	}

	return h.timeline[h.cursor]
}

// FetchBars returns up to limit of the most recent bars for the provided market at the
// replay cursor, ordered oldest first.
func (h *HistoricData) FetchBars(_ context.Context, market string, limit int) ([]shared.Bar, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("bar limit must be positive, got %d", limit)
	}

	bars, ok := h.bars[market]
	if !ok {
		return nil, fmt.Errorf("no historic data loaded for %s", market)
	}

	current := h.Current()
	if current.IsZero() {
		return []shared.Bar{}, nil
	}

	// Find the number of bars at or before the cursor.
	end, found := slices.BinarySearchFunc(bars, current, func(bar shared.Bar, target time.Time) int {
		return bar.Date.Compare(target)
	})
	if found {
		end++
	}

	begin := max(0, end-limit)
	window := make([]shared.Bar, end-begin)
	copy(window, bars[begin:end])

	return window, nil
}

// Markets returns the markets of the loaded data.
func (h *HistoricData) Markets() []string {
	return slices.Clone(h.markets)
}

// Len returns the number of distinct timestamps in the loaded data.
func (h *HistoricData) Len() int {
	return len(h.timeline)
}

// FetchStartTime returns the start time of the loaded historical data.
func (h *HistoricData) FetchStartTime() time.Time {
	return h.timeline[0]
}

// FetchEndTime returns the end time of the loaded historical data.
func (h *HistoricData) FetchEndTime() time.Time {
	return h.timeline[len(h.timeline)-1]
}

// LogRange logs the range covered by the loaded historical data.
func (h *HistoricData) LogRange() {
	first := h.FetchStartTime()
	last := h.FetchEndTime()
	h.cfg.Logger.Info().Msgf("replaying historical data for %v covering %.2f hours, from %s, to %s",
		h.markets, last.Sub(first).Hours(), first.Format(time.RFC1123), last.Format(time.RFC1123))
}
