package main

import (
	"time"

	"github.com/scmhub/calendar"
)

// Scheduler decides when the next sync run is due.
type Scheduler struct {
	interval         time.Duration
	businessDaysOnly bool
	location         *time.Location
	nyse             *calendar.Calendar
}

// NewScheduler creates a scheduler. An unknown timezone falls back to UTC.
func NewScheduler(interval time.Duration, businessDaysOnly bool, timezone string) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Scheduler{
		interval:         interval,
		businessDaysOnly: businessDaysOnly,
		location:         loc,
		nyse:             calendar.XNYS(),
	}
}

// Due reports whether a run should start at now given the last run time.
func (s *Scheduler) Due(last, now time.Time) bool {
	if s.businessDaysOnly && !s.IsBusinessDay(now) {
		return false
	}
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= s.interval
}

// IsBusinessDay checks the calendar date of t in the configured timezone.
func (s *Scheduler) IsBusinessDay(t time.Time) bool {
	local := t.In(s.location)
	// Noon avoids DST edges when matching the date
	noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, s.location)
	return s.nyse.IsBusinessDay(noon)
}

// Label formats a run time for notifications.
func (s *Scheduler) Label(t time.Time) string {
	return t.In(s.location).Format("2006-01-02 15:04 MST")
}

func (s *Scheduler) Location() *time.Location {
	return s.location
}
