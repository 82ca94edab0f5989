package extensions

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestCalendarDiff(t *testing.T) {
	tests := []struct {
		name     string
		from, to time.Time
		want     span
	}{
		{"plain", date(2020, 1, 15, 10, 0), date(2023, 3, 20, 12, 30), span{3, 2, 5, 2, 30}},
		{"month end clamps", date(2023, 1, 31, 23, 0), date(2023, 3, 1, 1, 0), span{0, 1, 0, 2, 0}},
		{"borrow day", date(2023, 3, 20, 18, 0), date(2023, 4, 20, 6, 0), span{0, 0, 30, 12, 0}},
		{"reversed", date(2024, 1, 1, 0, 0), date(2023, 1, 1, 0, 0), span{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calendarDiff(tt.from, tt.to); got != tt.want {
				t.Errorf("calendarDiff = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatters(t *testing.T) {
	now := date(2023, 3, 20, 12, 30)
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"age", formatAge(date(2022, 3, 20, 12, 0), now), "1y 30m"},
		{"age zero", formatAge(now, now), "0m"},
		{"followage", formatFollowAge(date(2021, 1, 20, 12, 30), now), "2y 2mo"},
		{"followage zero", formatFollowAge(now.Add(-time.Hour), now), "0d"},
		{"uptime minutes only", formatUptime(42 * time.Minute), "42m"},
		{"uptime hours", formatUptime(3*time.Hour + 4*time.Minute), "3h 4m"},
		{"uptime days", formatUptime(49 * time.Hour), "2d 1h 0m"},
		{"followsince one day", formatFollowSince(now.Add(-30*time.Hour), now), "19 March 2023 (1 day)"},
		{"followsince days", formatFollowSince(date(2023, 3, 1, 0, 0), now), "01 March 2023 (19 days)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
