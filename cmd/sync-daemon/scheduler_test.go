package main

import (
	"testing"
	"time"
)

func TestScheduler_Due(t *testing.T) {
	s := NewScheduler(time.Hour, false, "America/Los_Angeles")
	now := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last time.Time
		want bool
	}{
		{"never run", time.Time{}, true},
		{"interval elapsed", now.Add(-time.Hour), true},
		{"interval not elapsed", now.Add(-59 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Due(tt.last, now); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_BusinessDaysOnly(t *testing.T) {
	s := NewScheduler(time.Hour, true, "America/Los_Angeles")

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"tuesday", time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC), true},
		{"saturday", time.Date(2025, 3, 8, 18, 0, 0, 0, time.UTC), false},
		{"independence day", time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC), false},
		// 03:00 UTC Saturday is still Friday evening in Los Angeles
		{"friday evening local", time.Date(2025, 3, 8, 3, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Due(time.Time{}, tt.now); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_InvalidTimezone(t *testing.T) {
	s := NewScheduler(time.Hour, false, "Not/AZone")
	if s.Location() != time.UTC {
		t.Errorf("expected UTC fallback, got %v", s.Location())
	}
}
