package market

import (
	"testing"
	"time"
)

func TestIsOpen(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"monday mid-session", time.Date(2025, 6, 2, 11, 0, 0, 0, ist), true},
		{"session open minute", time.Date(2025, 6, 2, 9, 15, 0, 0, ist), true},
		{"before open", time.Date(2025, 6, 2, 9, 14, 0, 0, ist), false},
		{"session close minute", time.Date(2025, 6, 2, 15, 30, 0, 0, ist), true},
		{"after close", time.Date(2025, 6, 2, 15, 31, 0, 0, ist), false},
		{"saturday", time.Date(2025, 6, 7, 11, 0, 0, 0, ist), false},
		{"sunday", time.Date(2025, 6, 8, 11, 0, 0, 0, ist), false},
		// 06:00 UTC is 11:30 IST on a Tuesday.
		{"utc input converted", time.Date(2025, 6, 3, 6, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsOpen(tc.t); got != tc.want {
				t.Fatalf("IsOpen(%v)=%v, expected %v", tc.t, got, tc.want)
			}
		})
	}
}
