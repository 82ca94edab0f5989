package extensions

import (
	"fmt"
	"strings"
	"time"
)

// span is a calendar difference: whole years and months, then the remainder
// as days, hours and minutes.
type span struct {
	years, months, days, hours, minutes int
}

// addMonths adds n months to t, clamping the day to the end of the target month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), last)-1)
}

func calendarDiff(from, to time.Time) span {
	from, to = from.UTC(), to.UTC()
	if !to.After(from) {
		return span{}
	}
	total := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	anchor := addMonths(from, total)
	if anchor.After(to) {
		total--
		anchor = addMonths(from, total)
	}
	rest := to.Sub(anchor)
	return span{
		years:   total / 12,
		months:  total % 12,
		days:    int(rest / (24 * time.Hour)),
		hours:   int(rest/time.Hour) % 24,
		minutes: int(rest/time.Minute) % 60,
	}
}

type part struct {
	n    int
	unit string
}

func joinParts(parts ...part) string {
	var out []string
	for _, p := range parts {
		if p.n > 0 {
			out = append(out, fmt.Sprintf("%d%s", p.n, p.unit))
		}
	}
	return strings.Join(out, " ")
}

// formatAge renders an account age as "1y 2m 3d 4h 5m".
func formatAge(from, to time.Time) string {
	s := calendarDiff(from, to)
	out := joinParts(part{s.years, "y"}, part{s.months, "m"}, part{s.days, "d"}, part{s.hours, "h"}, part{s.minutes, "m"})
	if out == "" {
		return "0m"
	}
	return out
}

// formatFollowAge renders "1y 2mo 3d".
func formatFollowAge(from, to time.Time) string {
	s := calendarDiff(from, to)
	out := joinParts(part{s.years, "y"}, part{s.months, "mo"}, part{s.days, "d"})
	if out == "" {
		return "0d"
	}
	return out
}

// formatUptime renders "1d 2h 3m"; minutes are always present.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60
	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%dd ", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%dh ", hours)
	}
	fmt.Fprintf(&b, "%dm", minutes)
	return b.String()
}

// formatFollowSince renders "02 January 2006 (N days)".
func formatFollowSince(at, now time.Time) string {
	days := int(now.Sub(at) / (24 * time.Hour))
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return fmt.Sprintf("%s (%d %s)", at.UTC().Format("02 January 2006"), days, unit)
}
