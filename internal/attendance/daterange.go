package attendance

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// View selects how many calendar days the grid shows at once.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ParseView normalises a view mode, defaulting to week.
func ParseView(value string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return ViewWeek, nil
	case ViewDay:
		return ViewDay, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewMonth:
		return ViewMonth, nil
	default:
		return "", fmt.Errorf("unsupported view %q", value)
	}
}

// Direction is a navigation step relative to the current view.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// DateOf truncates t to its calendar date at UTC midnight. The calendar
// fields are taken from t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return parsed, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsSunday reports whether the calendar date falls on a Sunday.
func IsSunday(t time.Time) bool {
	return t.Weekday() == time.Sunday
}

// Window is an inclusive enrollment interval. Either bound may be open.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// NewWindow builds a window from optional bounds, normalising them to dates.
func NewWindow(start, end *time.Time) Window {
	var w Window
	if start != nil {
		s := DateOf(*start)
		w.Start = &s
	}
	if end != nil {
		e := DateOf(*end)
		w.End = &e
	}
	return w
}

// Empty reports whether no date can satisfy the window.
func (w Window) Empty() bool {
	return w.Start != nil && w.End != nil && w.End.Before(*w.Start)
}

// Contains reports whether the date lies inside the window.
func (w Window) Contains(date time.Time) bool {
	if w.Start != nil && date.Before(*w.Start) {
		return false
	}
	if w.End != nil && date.After(*w.End) {
		return false
	}
	return true
}

// Overlaps reports whether [from, to] shares at least one day with the window.
func (w Window) Overlaps(from, to time.Time) bool {
	if w.Empty() {
		return false
	}
	if w.Start != nil && to.Before(*w.Start) {
		return false
	}
	if w.End != nil && from.After(*w.End) {
		return false
	}
	return true
}

// Clamp moves the date to the nearest bound when it lies outside the window.
func (w Window) Clamp(date time.Time) time.Time {
	if w.Start != nil && date.Before(*w.Start) {
		return *w.Start
	}
	if w.End != nil && date.After(*w.End) {
		return *w.End
	}
	return date
}

// Bounds returns the first and last date of the view unit containing ref.
func Bounds(view View, ref time.Time) (time.Time, time.Time) {
	day := DateOf(ref)
	switch view {
	case ViewDay:
		return day, day
	case ViewMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, -1)
	default:
		offset := (int(day.Weekday()) + 6) % 7
		monday := day.AddDate(0, 0, -offset)
		return monday, monday.AddDate(0, 0, 6)
	}
}

// Dates lists every date of the view unit containing ref, ascending.
func Dates(view View, ref time.Time) []time.Time {
	from, to := Bounds(view, ref)
	dates := make([]time.Time, 0, 31)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Range returns the visible dates for the view around ref, clipped to the
// window. The reference is clamped into the window first so a reference
// outside the enrollment period still lands on its nearest edge.
func Range(view View, ref time.Time, window Window) []time.Time {
	if window.Empty() {
		return []time.Time{}
	}
	anchor := window.Clamp(DateOf(ref))
	all := Dates(view, anchor)
	clipped := make([]time.Time, 0, len(all))
	for _, d := range all {
		if window.Contains(d) {
			clipped = append(clipped, d)
		}
	}
	return clipped
}

// Shift moves ref by one view unit in the given direction.
func Shift(view View, ref time.Time, dir Direction) time.Time {
	day := DateOf(ref)
	switch view {
	case ViewDay:
		return day.AddDate(0, 0, int(dir))
	case ViewMonth:
		return time.Date(day.Year(), day.Month()+time.Month(dir), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day.AddDate(0, 0, 7*int(dir))
	}
}

// Step describes where a navigation control leads.
type Step struct {
	Enabled bool
	Date    time.Time
}

// Navigate computes the prev/next step. The step is disabled when the target
// unit lies entirely outside the window; otherwise its reference is clamped
// into the window.
func Navigate(view View, ref time.Time, dir Direction, window Window) Step {
	anchor := window.Clamp(DateOf(ref))
	target := Shift(view, anchor, dir)
	from, to := Bounds(view, target)
	if !window.Overlaps(from, to) {
		return Step{}
	}
	return Step{Enabled: true, Date: window.Clamp(target)}
}
