package position

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Book tracks at most one position per market.
type Book struct {
	positions   map[string]Position
	positionMtx sync.RWMutex
}

// NewBook initializes a new position book.
func NewBook() *Book {
	return &Book{
		positions: make(map[string]Position),
	}
}

// Fetch returns the position held in the provided market. A flat position is returned
// when none is held.
func (b *Book) Fetch(market string) Position {
	b.positionMtx.RLock()
	defer b.positionMtx.RUnlock()

	return b.positions[market]
}

// Apply records the provided position state for the provided market. Open positions
// replace the tracked position, flat positions remove it.
func (b *Book) Apply(market string, pos Position) error {
	if pos.Open && pos.Market != market {
		return fmt.Errorf("unexpected position market provided for %s: %s", market, pos.Market)
	}

	b.positionMtx.Lock()
	defer b.positionMtx.Unlock()

	if !pos.Open {
		delete(b.positions, market)
		return nil
	}

	current, ok := b.positions[market]
	if ok && current.ID != pos.ID {
		return fmt.Errorf("%s already has an open position (%s)", market, current.ID)
	}

	b.positions[market] = pos

	return nil
}

// Positions returns the open positions ordered by market.
func (b *Book) Positions() []Position {
	b.positionMtx.RLock()
	set := make([]Position, 0, len(b.positions))
	for k := range b.positions {
		set = append(set, b.positions[k])
	}
	b.positionMtx.RUnlock()

	slices.SortFunc(set, func(a, b Position) int {
		return strings.Compare(a.Market, b.Market)
	})

	return set
}

// Len returns the number of open positions.
func (b *Book) Len() int {
	b.positionMtx.RLock()
	defer b.positionMtx.RUnlock()

	return len(b.positions)
}
