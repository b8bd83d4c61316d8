package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var scheduleTimePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ScheduleEntry is one (day-of-week, time-of-day) pair of a weekly schedule.
// Day holds the English day name ("Monday"), which is the lookup key.
type ScheduleEntry struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

type WeeklySchedule []ScheduleEntry

// Weekday parses the entry's day name.
func (e ScheduleEntry) Weekday() (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == e.Day {
			return d, true
		}
	}
	return time.Sunday, false
}

// Clock returns the hour and minute of the entry's time-of-day.
func (e ScheduleEntry) Clock() (int, int, error) {
	if !scheduleTimePattern.MatchString(e.Time) {
		return 0, 0, fmt.Errorf("invalid time format in schedule: %s", e.Time)
	}
	parts := strings.SplitN(e.Time, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m, nil
}

// EntryFor returns the first entry scheduled on the given weekday.
func (s WeeklySchedule) EntryFor(day time.Weekday) (ScheduleEntry, bool) {
	name := day.String()
	for _, e := range s {
		if e.Day == name {
			return e, true
		}
	}
	return ScheduleEntry{}, false
}

// Validate returns one message per malformed entry.
func (s WeeklySchedule) Validate() []string {
	if len(s) == 0 {
		return []string{"Weekly schedule is required"}
	}
	var errs []string
	for _, e := range s {
		if _, ok := e.Weekday(); !ok {
			errs = append(errs, fmt.Sprintf("Invalid day in schedule: %s", e.Day))
		}
		if !scheduleTimePattern.MatchString(e.Time) {
			errs = append(errs, fmt.Sprintf("Invalid time format in schedule: %s", e.Time))
		}
	}
	return errs
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves a calendar date by n days, keeping it at midnight across DST shifts.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}
