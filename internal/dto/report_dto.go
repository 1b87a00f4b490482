package dto

import "time"

// AttendanceReportRequest scopes a report to a member kind, optional batch and month (YYYY-MM).
type AttendanceReportRequest struct {
	Kind     string
	BatchID  *uint
	Month    string
	Download bool
}

// AttendanceReportRow is one person's tally.
type AttendanceReportRow struct {
	PersonID uint   `json:"person_id"`
	Name     string `json:"name"`
	Present  int    `json:"present"`
	Absent   int    `json:"absent"`
	Percent  int    `json:"percent"`
}

// AttendanceChartResponse is the per-person percentage series.
type AttendanceChartResponse struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// AttendanceReportResponse is the JSON form of a report.
type AttendanceReportResponse struct {
	Kind           string                  `json:"kind"`
	BatchID        *uint                   `json:"batch_id"`
	BatchName      string                  `json:"batch_name"`
	Month          string                  `json:"month"`
	From           string                  `json:"from"`
	To             string                  `json:"to"`
	FileName       string                  `json:"file_name"`
	SessionCount   int                     `json:"session_count"`
	TotalPresent   int                     `json:"total_present"`
	TotalAbsent    int                     `json:"total_absent"`
	OverallPercent int                     `json:"overall_percent"`
	Rows           []AttendanceReportRow   `json:"rows"`
	Chart          AttendanceChartResponse `json:"chart"`
	GeneratedAt    time.Time               `json:"generated_at"`
	CacheHit       bool                    `json:"cache_hit"`
}

// AttendanceReportArchiveResponse points to an archived report file.
type AttendanceReportArchiveResponse struct {
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// AttendanceDayResponse is one day of a personal history.
type AttendanceDayResponse struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// MyAttendanceResponse is a student's or SME's own month.
type MyAttendanceResponse struct {
	Month   string                  `json:"month"`
	Days    []AttendanceDayResponse `json:"days"`
	Present int                     `json:"present"`
	Absent  int                     `json:"absent"`
	Percent int                     `json:"percent"`
}
