package dto

// AttendanceGridRequest selects the grid to render. Date is the reference
// date (YYYY-MM-DD); an empty date means today.
type AttendanceGridRequest struct {
	Kind    string
	BatchID *uint
	View    string
	Date    string
	Mode    string
}

// AttendanceEdit changes one cell. With Toggle set the status cycles from
// the current value and Status is ignored.
type AttendanceEdit struct {
	PersonID uint   `json:"person_id" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Status   string `json:"status" validate:"omitempty,oneof=present absent not_applicable null"`
	Toggle   bool   `json:"toggle"`
}

// AttendanceDraftRequest applies edits to the caller's unsaved draft.
type AttendanceDraftRequest struct {
	Edits []AttendanceEdit `json:"edits" validate:"required,min=1,max=1000,dive"`
}

// AttendanceSaveRequest optionally carries last-moment edits to include in the save.
type AttendanceSaveRequest struct {
	Edits []AttendanceEdit `json:"edits" validate:"omitempty,max=1000,dive"`
}

// AttendanceNavResponse is a prev/next control.
type AttendanceNavResponse struct {
	Enabled bool   `json:"enabled"`
	Date    string `json:"date,omitempty"`
}

// AttendanceWindowResponse is the batch enrollment window.
type AttendanceWindowResponse struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// AttendanceCellResponse is one cell of the grid. Status is null when unset.
type AttendanceCellResponse struct {
	Date     string  `json:"date"`
	Status   *string `json:"status"`
	Display  string  `json:"display"`
	Edited   bool    `json:"edited"`
	Disabled bool    `json:"disabled"`
	Reason   string  `json:"reason,omitempty"`
}

// AttendanceRowResponse is one person's row.
type AttendanceRowResponse struct {
	PersonID uint                     `json:"person_id"`
	Name     string                   `json:"name"`
	Active   bool                     `json:"active"`
	Cells    []AttendanceCellResponse `json:"cells"`
}

// AttendanceGridResponse is a rendered people × dates grid.
type AttendanceGridResponse struct {
	Kind      string                   `json:"kind"`
	BatchID   *uint                    `json:"batch_id"`
	BatchName string                   `json:"batch_name,omitempty"`
	View      string                   `json:"view"`
	Mode      string                   `json:"mode"`
	Reference string                   `json:"reference"`
	Today     string                   `json:"today"`
	Window    AttendanceWindowResponse `json:"window"`
	Dates     []string                 `json:"dates"`
	Prev      AttendanceNavResponse    `json:"prev"`
	Next      AttendanceNavResponse    `json:"next"`
	Rows      []AttendanceRowResponse  `json:"rows"`
	Dirty     bool                     `json:"dirty"`
}

// AttendanceRejectedCell reports an edit that was not applied.
type AttendanceRejectedCell struct {
	PersonID uint   `json:"person_id"`
	Date     string `json:"date"`
	Reason   string `json:"reason"`
}

// AttendanceDraftResponse is the grid after draft edits.
type AttendanceDraftResponse struct {
	Grid     AttendanceGridResponse   `json:"grid"`
	Rejected []AttendanceRejectedCell `json:"rejected"`
}

// AttendanceSaveResponse is the re-fetched grid after a save.
type AttendanceSaveResponse struct {
	Saved    int                      `json:"saved"`
	Rejected []AttendanceRejectedCell `json:"rejected"`
	Grid     AttendanceGridResponse   `json:"grid"`
}

// AttendanceSavedEvent is pushed to live grid watchers after a save.
type AttendanceSavedEvent struct {
	Type    string   `json:"type"`
	Kind    string   `json:"kind"`
	BatchID *uint    `json:"batch_id"`
	Dates   []string `json:"dates"`
	SavedBy uint     `json:"saved_by"`
	Saved   int      `json:"saved"`
}
