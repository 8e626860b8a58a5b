package shared

import (
	"fmt"
	"time"
)

const (
	// NewYorkLocation is the location used for market hours.
	NewYorkLocation = "America/New_York"
	// SessionTimeLayout is the format layout for parsing session times in a day.
	SessionTimeLayout = "15:04"

	// Regular US equities session in new york time (ET).
	RegularOpen  = "09:30"
	RegularClose = "16:00"
)

// Session represents a trading session for a day.
type Session struct {
	Open  time.Time
	Close time.Time
}

// NewYorkTime returns the current time in new york (EST/EDT adjusted automatically).
func NewYorkTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	now := time.Now().In(loc)
	return now, loc, nil
}

// NewSession initializes the regular session for the day of the provided time.
func NewSession(now time.Time) (*Session, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	sessionOpen, err := time.Parse(SessionTimeLayout, RegularOpen)
	if err != nil {
		return nil, fmt.Errorf("parsing session open: %w", err)
	}

	sessionClose, err := time.Parse(SessionTimeLayout, RegularClose)
	if err != nil {
		return nil, fmt.Errorf("parsing session close: %w", err)
	}

	day := now.In(loc)
	session := &Session{
		Open:  time.Date(day.Year(), day.Month(), day.Day(), sessionOpen.Hour(), sessionOpen.Minute(), 0, 0, loc),
		Close: time.Date(day.Year(), day.Month(), day.Day(), sessionClose.Hour(), sessionClose.Minute(), 0, 0, loc),
	}

	return session, nil
}

// IsCurrentSession checks whether the provided time falls within the session.
func (s *Session) IsCurrentSession(current time.Time) bool {
	return (current.Equal(s.Open) || current.After(s.Open)) && current.Before(s.Close)
}

// IsMarketOpen checks whether the regular US equities session is open at the provided time.
// Exchange holidays are not accounted for.
func IsMarketOpen(now time.Time) (bool, error) {
	session, err := NewSession(now)
	if err != nil {
		return false, fmt.Errorf("creating session: %w", err)
	}

	switch session.Open.Weekday() {
	case time.Saturday, time.Sunday:
		return false, nil
	}

	return session.IsCurrentSession(now), nil
}
