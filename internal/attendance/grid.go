package attendance

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrCellDisabled is returned when an edit targets a disabled cell.
	ErrCellDisabled = errors.New("attendance cell is not editable")
	// ErrUnknownPerson is returned when an edit targets a person outside the grid.
	ErrUnknownPerson = errors.New("person is not part of this grid")
	// ErrInvalidKey is returned when a cell key cannot be parsed.
	ErrInvalidKey = errors.New("invalid attendance cell key")
)

// Key addresses one cell of the grid.
type Key struct {
	PersonID uint
	Date     time.Time
}

// NewKey builds a key with the date normalised.
func NewKey(personID uint, date time.Time) Key {
	return Key{PersonID: personID, Date: DateOf(date)}
}

// String renders the key as "personId|YYYY-MM-DD".
func (k Key) String() string {
	return strconv.FormatUint(uint64(k.PersonID), 10) + "|" + FormatDate(k.Date)
}

// ParseKey parses a "personId|YYYY-MM-DD" key.
func ParseKey(value string) (Key, error) {
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, value)
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id == 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, value)
	}
	date, err := ParseDate(parts[1])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, value)
	}
	return Key{PersonID: uint(id), Date: date}, nil
}

// Record is a persisted or pending attendance value.
type Record struct {
	PersonID uint
	Date     time.Time
	Status   Status
}

// Key returns the cell address of the record.
func (r Record) Key() Key {
	return NewKey(r.PersonID, r.Date)
}

// Cell is the rendered state of one grid cell.
type Cell struct {
	Date      time.Time
	Status    Status
	Display   Status
	Persisted bool
	Edited    bool
	Disabled  DisabledReason
}

// Grid is the in-memory attendance state for a set of people over a set of
// dates. Persisted values are merged in from storage; edits stay local until
// they are committed.
type Grid struct {
	people    []Person
	index     map[uint]Person
	dates     []time.Time
	inRange   map[string]struct{}
	rules     Rules
	persisted map[string]Status
	edits     map[string]Status
}

// NewGrid creates an empty grid.
func NewGrid(people []Person, dates []time.Time, rules Rules) *Grid {
	g := &Grid{
		people:    make([]Person, 0, len(people)),
		index:     make(map[uint]Person, len(people)),
		dates:     make([]time.Time, 0, len(dates)),
		inRange:   make(map[string]struct{}, len(dates)),
		rules:     rules,
		persisted: make(map[string]Status),
		edits:     make(map[string]Status),
	}
	for _, p := range people {
		if _, exists := g.index[p.ID]; exists {
			continue
		}
		g.index[p.ID] = p
		g.people = append(g.people, p)
	}
	for _, d := range dates {
		day := DateOf(d)
		key := FormatDate(day)
		if _, exists := g.inRange[key]; exists {
			continue
		}
		g.inRange[key] = struct{}{}
		g.dates = append(g.dates, day)
	}
	sort.Slice(g.dates, func(i, j int) bool { return g.dates[i].Before(g.dates[j]) })
	return g
}

// People returns the grid rows in order.
func (g *Grid) People() []Person {
	return append([]Person(nil), g.people...)
}

// Dates returns the grid columns in ascending order.
func (g *Grid) Dates() []time.Time {
	return append([]time.Time(nil), g.dates...)
}

// Merge loads stored rows. Rows for unknown people or dates outside the grid
// are ignored, as are unset statuses.
func (g *Grid) Merge(records []Record) {
	for _, rec := range records {
		key := rec.Key()
		if !g.contains(key) || !rec.Status.Valid() {
			continue
		}
		g.persisted[key.String()] = rec.Status
	}
}

// Status returns the current value of a cell, edits taking precedence.
func (g *Grid) Status(key Key) Status {
	k := NewKey(key.PersonID, key.Date).String()
	if s, ok := g.edits[k]; ok {
		return s
	}
	return g.persisted[k]
}

// Display returns the status shown to the user; unset cells show as not applicable.
func (g *Grid) Display(key Key) Status {
	if s := g.Status(key); s != StatusNone {
		return s
	}
	return StatusNotApplicable
}

// Disabled reports why the cell cannot be edited.
func (g *Grid) Disabled(key Key) DisabledReason {
	key = NewKey(key.PersonID, key.Date)
	if !g.contains(key) {
		return ReasonNotInGrid
	}
	return g.rules.Disabled(g.index[key.PersonID], key.Date)
}

// Set records an edit. Setting StatusNone, or the value already persisted,
// discards any pending edit for the cell.
func (g *Grid) Set(key Key, status Status) error {
	key = NewKey(key.PersonID, key.Date)
	if _, ok := g.index[key.PersonID]; !ok {
		return ErrUnknownPerson
	}
	if reason := g.Disabled(key); reason != Editable {
		return fmt.Errorf("%w: %s %s", ErrCellDisabled, key, reason)
	}
	if status != StatusNone && !status.Valid() {
		return fmt.Errorf("unsupported attendance status %q", status)
	}

	k := key.String()
	if status == StatusNone || g.persisted[k] == status {
		delete(g.edits, k)
		return nil
	}
	g.edits[k] = status
	return nil
}

// Toggle advances the cell to its next status and returns it.
func (g *Grid) Toggle(key Key, mode ToggleMode) (Status, error) {
	next := Next(g.Status(key), mode)
	if err := g.Set(key, next); err != nil {
		return StatusNone, err
	}
	return next, nil
}

// Dirty reports whether the grid holds unsaved edits.
func (g *Grid) Dirty() bool {
	return len(g.edits) > 0
}

// Edits returns the pending edits sorted by person then date.
func (g *Grid) Edits() []Record {
	out := make([]Record, 0, len(g.edits))
	for k, status := range g.edits {
		key, err := ParseKey(k)
		if err != nil {
			continue
		}
		out = append(out, Record{PersonID: key.PersonID, Date: key.Date, Status: status})
	}
	sortRecords(out)
	return out
}

// Upserts returns the rows a save must write: pending edits with a value,
// on cells that are still editable.
func (g *Grid) Upserts() []Record {
	edits := g.Edits()
	out := make([]Record, 0, len(edits))
	for _, rec := range edits {
		if !rec.Status.Valid() {
			continue
		}
		if g.Disabled(rec.Key()) != Editable {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Commit folds pending edits into the persisted state.
func (g *Grid) Commit() {
	for k, status := range g.edits {
		g.persisted[k] = status
	}
	g.edits = make(map[string]Status)
}

// Row renders the cells of one person across all grid dates.
func (g *Grid) Row(personID uint) []Cell {
	cells := make([]Cell, 0, len(g.dates))
	for _, d := range g.dates {
		key := NewKey(personID, d)
		k := key.String()
		_, persisted := g.persisted[k]
		_, edited := g.edits[k]
		cells = append(cells, Cell{
			Date:      d,
			Status:    g.Status(key),
			Display:   g.Display(key),
			Persisted: persisted,
			Edited:    edited,
			Disabled:  g.Disabled(key),
		})
	}
	return cells
}

func (g *Grid) contains(key Key) bool {
	if _, ok := g.index[key.PersonID]; !ok {
		return false
	}
	_, ok := g.inRange[FormatDate(key.Date)]
	return ok
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].PersonID != records[j].PersonID {
			return records[i].PersonID < records[j].PersonID
		}
		return records[i].Date.Before(records[j].Date)
	})
}
