package ics

import (
	"errors"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Event is a VEVENT as read back from an exported calendar.
type Event struct {
	UID     string
	Summary string
	Status  string

	Start  time.Time
	End    time.Time
	AllDay bool
}

// ReadCalendar parses an iCalendar document into events, in file order.
// It is the inverse of WriteCalendar and is used to inspect a previous
// export.
func ReadCalendar(r io.Reader) ([]Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0)
	for _, ve := range cal.Events() {
		ev, err := readVEvent(ve)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func readVEvent(ve *ical.VEvent) (Event, error) {
	var out Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("ics: event without UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = p.Value
	}

	// All-day if DTSTART has VALUE=DATE or no time part.
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if vs, ok := dtStartProp.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(dtStartProp.Value, "T") {
			out.AllDay = true
		}
	}

	var err error
	if out.AllDay {
		if out.Start, err = ve.GetAllDayStartAt(); err != nil {
			return out, err
		}
		if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
			if out.End, err = ve.GetAllDayEndAt(); err != nil {
				return out, err
			}
		}
		return out, nil
	}

	if out.Start, err = ve.GetStartAt(); err != nil {
		return out, err
	}
	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		if out.End, err = ve.GetEndAt(); err != nil {
			return out, err
		}
	}
	return out, nil
}
