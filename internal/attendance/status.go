package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Status is the attendance state of one person on one date.
type Status string

const (
	StatusNone          Status = ""
	StatusPresent       Status = "present"
	StatusAbsent        Status = "absent"
	StatusNotApplicable Status = "not_applicable"
)

// ParseStatus accepts the persisted values plus "" and "null" for an unset cell.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case "", "null":
		return StatusNone, nil
	case StatusPresent:
		return StatusPresent, nil
	case StatusAbsent:
		return StatusAbsent, nil
	case StatusNotApplicable, "na", "n/a":
		return StatusNotApplicable, nil
	default:
		return StatusNone, fmt.Errorf("unsupported attendance status %q", value)
	}
}

// Valid reports whether the status can be persisted.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusNotApplicable:
		return true
	default:
		return false
	}
}

// ToggleMode selects the cycle used by Next.
type ToggleMode int

const (
	// ToggleTriState cycles present -> absent -> not applicable.
	ToggleTriState ToggleMode = iota
	// ToggleBoolean flips between present and absent.
	ToggleBoolean
)

// ParseToggleMode maps "tri"/"boolean" to a mode, defaulting to tri-state.
func ParseToggleMode(value string) ToggleMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "bool", "boolean", "binary":
		return ToggleBoolean
	default:
		return ToggleTriState
	}
}

// Next returns the status a toggle moves the cell to.
func Next(current Status, mode ToggleMode) Status {
	if mode == ToggleBoolean {
		if current == StatusPresent {
			return StatusAbsent
		}
		return StatusPresent
	}

	switch current {
	case StatusPresent:
		return StatusAbsent
	case StatusAbsent:
		return StatusNotApplicable
	default:
		return StatusPresent
	}
}

// DisabledReason explains why a cell cannot be edited.
type DisabledReason string

const (
	Editable        DisabledReason = ""
	ReasonFuture    DisabledReason = "future"
	ReasonSunday    DisabledReason = "sunday"
	ReasonOutside   DisabledReason = "outside_batch"
	ReasonInactive  DisabledReason = "inactive"
	ReasonNotInGrid DisabledReason = "not_in_grid"
)

// Person is a row of the grid.
type Person struct {
	ID     uint
	Name   string
	Active bool
	Window Window
}

// Rules decides which cells accept edits.
type Rules struct {
	Today time.Time
}

// Disabled returns the first rule that blocks editing, or Editable.
func (r Rules) Disabled(person Person, date time.Time) DisabledReason {
	day := DateOf(date)
	switch {
	case day.After(DateOf(r.Today)):
		return ReasonFuture
	case IsSunday(day):
		return ReasonSunday
	case !person.Window.Contains(day):
		return ReasonOutside
	case !person.Active:
		return ReasonInactive
	default:
		return Editable
	}
}
