package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := ParseDate(value)
	require.NoError(t, err)
	return parsed
}

func ptr(t time.Time) *time.Time {
	return &t
}

func formatAll(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, FormatDate(d))
	}
	return out
}

func TestDatesWeekAlwaysStartsMonday(t *testing.T) {
	start := day(t, "2023-12-20")
	for i := 0; i < 60; i++ {
		ref := start.AddDate(0, 0, i)
		dates := Dates(ViewWeek, ref)
		require.Len(t, dates, 7)
		require.Equal(t, time.Monday, dates[0].Weekday())
		for j := 1; j < len(dates); j++ {
			require.Equal(t, dates[j-1].AddDate(0, 0, 1), dates[j], "dates must be contiguous")
		}
		require.False(t, ref.Before(dates[0]))
		require.False(t, ref.After(dates[6]))
	}
}

func TestDatesDayAndMonth(t *testing.T) {
	require.Equal(t, []string{"2024-01-10"}, formatAll(Dates(ViewDay, day(t, "2024-01-10"))))

	feb := Dates(ViewMonth, day(t, "2024-02-17"))
	require.Len(t, feb, 29)
	require.Equal(t, "2024-02-01", FormatDate(feb[0]))
	require.Equal(t, "2024-02-29", FormatDate(feb[len(feb)-1]))

	require.Len(t, Dates(ViewMonth, day(t, "2023-02-03")), 28)
}

func TestDateOfUsesCalendarFieldsOfLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	late := time.Date(2024, 1, 10, 23, 30, 0, 0, loc)
	require.Equal(t, "2024-01-10", FormatDate(DateOf(late)))
	require.Equal(t, time.UTC, DateOf(late).Location())
}

func TestRangeClipsToWindow(t *testing.T) {
	window := NewWindow(ptr(day(t, "2024-01-10")), ptr(day(t, "2024-01-25")))

	first := Range(ViewWeek, day(t, "2024-01-10"), window)
	require.Equal(t, []string{"2024-01-10", "2024-01-11", "2024-01-12", "2024-01-13", "2024-01-14"}, formatAll(first))

	month := Range(ViewMonth, day(t, "2024-01-02"), window)
	require.Len(t, month, 16)
	for _, d := range month {
		require.True(t, window.Contains(d))
	}
}

func TestRangeClampsReferenceOutsideWindow(t *testing.T) {
	window := NewWindow(ptr(day(t, "2024-03-04")), nil)
	dates := Range(ViewWeek, day(t, "2024-01-01"), window)
	require.Equal(t, "2024-03-04", FormatDate(dates[0]))
	require.Len(t, dates, 7)
}

func TestRangeEmptyWindow(t *testing.T) {
	window := NewWindow(ptr(day(t, "2024-03-04")), ptr(day(t, "2024-03-01")))
	require.Empty(t, Range(ViewWeek, day(t, "2024-03-02"), window))
}

func TestBatchStartScenario(t *testing.T) {
	window := NewWindow(ptr(day(t, "2024-01-08")), nil)
	ref := day(t, "2024-01-10")

	dates := Range(ViewWeek, ref, window)
	require.Equal(t, []string{
		"2024-01-08", "2024-01-09", "2024-01-10", "2024-01-11",
		"2024-01-12", "2024-01-13", "2024-01-14",
	}, formatAll(dates))

	prev := Navigate(ViewWeek, ref, Backward, window)
	require.False(t, prev.Enabled)

	next := Navigate(ViewWeek, ref, Forward, window)
	require.True(t, next.Enabled)
	require.Equal(t, "2024-01-17", FormatDate(next.Date))
}

func TestNavigateClampsIntoPartialUnit(t *testing.T) {
	window := NewWindow(ptr(day(t, "2024-01-10")), ptr(day(t, "2024-02-20")))

	prev := Navigate(ViewWeek, day(t, "2024-01-17"), Backward, window)
	require.True(t, prev.Enabled)
	require.Equal(t, "2024-01-10", FormatDate(prev.Date))

	next := Navigate(ViewMonth, day(t, "2024-02-05"), Forward, window)
	require.False(t, next.Enabled)

	back := Navigate(ViewMonth, day(t, "2024-02-05"), Backward, window)
	require.True(t, back.Enabled)
	require.Equal(t, "2024-01-10", FormatDate(back.Date))
}

func TestNavigateDayWithoutWindow(t *testing.T) {
	step := Navigate(ViewDay, day(t, "2024-02-29"), Forward, Window{})
	require.True(t, step.Enabled)
	require.Equal(t, "2024-03-01", FormatDate(step.Date))
}

func TestShiftMonthFromLongMonth(t *testing.T) {
	require.Equal(t, "2024-02-01", FormatDate(Shift(ViewMonth, day(t, "2024-01-31"), Forward)))
	require.Equal(t, "2023-12-01", FormatDate(Shift(ViewMonth, day(t, "2024-01-31"), Backward)))
}

func TestParseView(t *testing.T) {
	view, err := ParseView("")
	require.NoError(t, err)
	require.Equal(t, ViewWeek, view)

	view, err = ParseView("MONTH")
	require.NoError(t, err)
	require.Equal(t, ViewMonth, view)

	_, err = ParseView("year")
	require.Error(t, err)
}
