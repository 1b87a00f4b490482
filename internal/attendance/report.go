package attendance

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MonthLayout is the wire format for report months.
const MonthLayout = "2006-01"

// ParseMonth parses a YYYY-MM month into its first day.
func ParseMonth(value string) (time.Time, error) {
	parsed, err := time.Parse(MonthLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", value, err)
	}
	return parsed, nil
}

// MonthBounds returns the first and last calendar day of the month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	return Bounds(ViewMonth, t)
}

// Percentage returns present/(present+absent) as a rounded percentage, or 0
// when nothing was recorded.
func Percentage(present, absent int) int {
	total := present + absent
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// Tally is the per-person result of an aggregation.
type Tally struct {
	PersonID uint
	Name     string
	Present  int
	Absent   int
	Percent  int
}

// Summary is the aggregate of one reporting period.
type Summary struct {
	From           time.Time
	To             time.Time
	Rows           []Tally
	SessionCount   int
	TotalPresent   int
	TotalAbsent    int
	OverallPercent int
}

// Aggregate counts present and absent records per person between from and to
// inclusive. Records for people outside the list are ignored. The session
// count is the number of distinct non-Sunday dates with at least one present
// record.
func Aggregate(people []Person, records []Record, from, to time.Time) Summary {
	from, to = DateOf(from), DateOf(to)

	rows := make([]Tally, 0, len(people))
	position := make(map[uint]int, len(people))
	for _, p := range people {
		if _, seen := position[p.ID]; seen {
			continue
		}
		position[p.ID] = len(rows)
		rows = append(rows, Tally{PersonID: p.ID, Name: p.Name})
	}

	sessionDates := make(map[string]struct{})
	summary := Summary{From: from, To: to}

	for _, rec := range records {
		idx, ok := position[rec.PersonID]
		if !ok {
			continue
		}
		day := DateOf(rec.Date)
		if day.Before(from) || day.After(to) {
			continue
		}
		switch rec.Status {
		case StatusPresent:
			rows[idx].Present++
			summary.TotalPresent++
			if !IsSunday(day) {
				sessionDates[FormatDate(day)] = struct{}{}
			}
		case StatusAbsent:
			rows[idx].Absent++
			summary.TotalAbsent++
		}
	}

	for i := range rows {
		rows[i].Percent = Percentage(rows[i].Present, rows[i].Absent)
	}

	summary.Rows = rows
	summary.SessionCount = len(sessionDates)
	summary.OverallPercent = Percentage(summary.TotalPresent, summary.TotalAbsent)
	return summary
}
