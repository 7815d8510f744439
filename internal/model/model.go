package model

import (
	"time"

	"schedsync/internal/notion"
)

// MarkerPrefix starts the marker property of every generated task. The
// source schedule entry id follows it.
const MarkerPrefix = "ID "

// Marker returns the marker text for tasks generated from sourceID.
func Marker(sourceID string) string {
	return MarkerPrefix + sourceID
}

// ExtraProperty is a schedule property copied onto generated tasks.
type ExtraProperty struct {
	Name  string
	Value notion.Property
}

// ScheduleEntry is a recurring event template read from the schedule
// database. It is never modified locally.
type ScheduleEntry struct {
	ID    string
	Title []notion.RichText

	// Recurrence is an RRULE (optionally with DTSTART/RDATE/EXDATE lines).
	Recurrence string
	// NotOn is a second rule whose dates are removed; empty means none.
	NotOn string
	// Reminder is carried through but not used yet.
	Reminder string

	// Time is the optional time-of-day window. Only the clock part of
	// Start and End matters.
	Time *notion.DateValue

	// DateField names the task property receiving the computed date.
	DateField string

	Extra    []ExtraProperty
	Children []notion.Block
}

// TaskRecord is one occurrence, ready to be created in the tasks database.
type TaskRecord struct {
	SourceID string
	Title    string

	// Start / End are in the configured output timezone. End is zero when
	// the occurrence has no end; AllDay tasks carry a date only.
	Start  time.Time
	End    time.Time
	AllDay bool
	Done   bool

	Properties notion.Properties
	Children   []notion.Block
}
