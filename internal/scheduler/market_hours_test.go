package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func kst(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, kstLocation)
}

func TestIsKRMarketOpenBoundaries(t *testing.T) {
	// 2026-08-05 is a Wednesday.
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"open at 09:00:00", kst(2026, 8, 5, 9, 0, 0), true},
		{"open at 15:30:00", kst(2026, 8, 5, 15, 30, 0), true},
		{"closed at 08:59:59", kst(2026, 8, 5, 8, 59, 59), false},
		{"closed at 15:30:01", kst(2026, 8, 5, 15, 30, 1), false},
		{"closed on Saturday at noon", kst(2026, 8, 8, 12, 0, 0), false},
		{"closed on Sunday at noon", kst(2026, 8, 9, 12, 0, 0), false},
		{"open at midday", kst(2026, 8, 5, 12, 30, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isKRMarketOpen(tt.t))
		})
	}
}

func TestIsUSMarketOpenBoundaries(t *testing.T) {
	// 2026-08-05 is a Wednesday, 2026-08-06 a Thursday, 2026-08-03 a Monday.
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"open KST Wed 23:45", kst(2026, 8, 5, 23, 45, 0), true},
		{"open KST Thu 03:00", kst(2026, 8, 6, 3, 0, 0), true},
		{"closed KST Mon 03:00", kst(2026, 8, 3, 3, 0, 0), false},
		{"closed mid-day", kst(2026, 8, 5, 12, 0, 0), false},
		{"closed Saturday overnight", kst(2026, 8, 8, 23, 45, 0), false},
		{"closed Sunday early morning", kst(2026, 8, 9, 3, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUSMarketOpen(tt.t))
		})
	}
}
