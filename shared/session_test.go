package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestSession(t *testing.T) {
	loc, err := time.LoadLocation(NewYorkLocation)
	assert.NoError(t, err)

	// Ensure the regular session can be created.
	now := time.Date(2025, time.March, 12, 11, 0, 0, 0, loc)
	session, err := NewSession(now)
	assert.NoError(t, err)
	assert.GreaterThan(t, session.Close.Unix(), session.Open.Unix())
	assert.Equal(t, session.Open.Hour(), 9)
	assert.Equal(t, session.Open.Minute(), 30)
	assert.Equal(t, session.Close.Hour(), 16)

	// Ensure the session is created for the new york day of times in other locations.
	utc := time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC)
	session, err = NewSession(utc)
	assert.NoError(t, err)
	assert.True(t, session.IsCurrentSession(utc))
}

func TestIsMarketOpen(t *testing.T) {
	loc, err := time.LoadLocation(NewYorkLocation)
	assert.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{
			name: "weekday before open",
			now:  time.Date(2025, time.March, 12, 9, 29, 0, 0, loc),
			want: false,
		},
		{
			name: "weekday at open",
			now:  time.Date(2025, time.March, 12, 9, 30, 0, 0, loc),
			want: true,
		},
		{
			name: "weekday midday",
			now:  time.Date(2025, time.March, 12, 13, 15, 0, 0, loc),
			want: true,
		},
		{
			name: "weekday at close",
			now:  time.Date(2025, time.March, 12, 16, 0, 0, 0, loc),
			want: false,
		},
		{
			name: "saturday midday",
			now:  time.Date(2025, time.March, 15, 12, 0, 0, 0, loc),
			want: false,
		},
		{
			name: "sunday midday",
			now:  time.Date(2025, time.March, 16, 12, 0, 0, 0, loc),
			want: false,
		},
	}

	for _, test := range tests {
		open, err := IsMarketOpen(test.now)
		assert.NoError(t, err)
		if open != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, open)
		}
	}
}
