package schedule

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"schedsync/internal/config"
	appLog "schedsync/internal/log"
	"schedsync/internal/model"
	"schedsync/internal/notion"
)

const (
	defaultMaxOccurrencesPerRule = 5000

	dateLayout         = "2006-01-02"
	localDateTimeParse = "2006-01-02T15:04:05.999999999"
)

// ExpandConfig controls how schedule entries are turned into tasks.
type ExpandConfig struct {
	// Location is the zone dates are computed and rendered in. If nil,
	// time.Local is used.
	Location *time.Location

	TitleProperty  string
	DoneProperty   string
	MarkerProperty string

	// MaxOccurrencesPerRule caps the expansion of rules without COUNT or
	// UNTIL. If zero, defaultMaxOccurrencesPerRule is used.
	MaxOccurrencesPerRule int

	Log *appLog.Logger
}

// NewExpandConfig takes output property names and zone from cfg.
func NewExpandConfig(cfg *config.Config, log *appLog.Logger) ExpandConfig {
	return ExpandConfig{
		Location:       cfg.Location(),
		TitleProperty:  cfg.TitleOutputProperty,
		DoneProperty:   cfg.DoneOutputProperty,
		MarkerProperty: cfg.RecurrenceInfoProperty,
		Log:            log,
	}
}

// InvalidRecurrenceError reports a rule that cannot be parsed or yields no
// occurrences at all.
type InvalidRecurrenceError struct {
	Title string
	Rule  string
	Err   error
}

func (e *InvalidRecurrenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("got invalid recurrence for entry %q: %v", e.Title, e.Err)
	}
	return fmt.Sprintf("got invalid recurrence for entry %q: rule %q yields no occurrences", e.Title, e.Rule)
}

func (e *InvalidRecurrenceError) Unwrap() error { return e.Err }

// Expand turns one schedule entry into the tasks to create, in occurrence
// order:
//
//   - occurrences whose calendar date matches an excluded date are dropped,
//     whatever time of day either rule produced
//   - with a time window, each date gets the window's start/end clock
//   - occurrences ending before the start of today are skipped
//   - Done is set when the occurrence ends (or starts, without an end)
//     before now
func Expand(entry model.ScheduleEntry, now time.Time, cfg ExpandConfig) ([]model.TaskRecord, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	limit := cfg.MaxOccurrencesPerRule
	if limit <= 0 {
		limit = defaultMaxOccurrencesPerRule
	}
	title := notion.PlainText(entry.Title)
	today := startOfDay(now.In(loc))

	occurrences, truncated, err := evaluateRule(entry.Recurrence, loc, today, limit)
	if err != nil {
		return nil, &InvalidRecurrenceError{Title: title, Rule: entry.Recurrence, Err: err}
	}
	if len(occurrences) == 0 {
		return nil, &InvalidRecurrenceError{Title: title, Rule: entry.Recurrence}
	}
	if truncated {
		cfg.Log.Warn("expand: truncated occurrences due to cap", "entry", title, "cap", limit)
	}

	var excluded []time.Time
	if strings.TrimSpace(entry.NotOn) != "" {
		excluded, truncated, err = evaluateRule(entry.NotOn, loc, today, limit)
		if err != nil {
			return nil, &InvalidRecurrenceError{Title: title, Rule: entry.NotOn, Err: err}
		}
		if truncated {
			cfg.Log.Warn("expand: truncated exclusions due to cap", "entry", title, "cap", limit)
		}
	}

	window, err := parseWindow(entry.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("entry %q: time window: %w", title, err)
	}

	out := make([]model.TaskRecord, 0, len(occurrences))
	for _, occ := range occurrences {
		date := startOfDay(occ.In(loc))
		if isExcluded(date, excluded, loc) {
			continue
		}

		start := date
		var end time.Time
		if window != nil {
			start = window.start.on(date)
			if window.end != nil {
				end = window.end.on(date)
			}
		}

		effectiveEnd := start
		if !end.IsZero() {
			effectiveEnd = end
		}
		if effectiveEnd.Before(today) {
			continue
		}

		task := model.TaskRecord{
			SourceID: entry.ID,
			Title:    title,
			Start:    start,
			End:      end,
			AllDay:   window == nil,
			Done:     effectiveEnd.Before(now),
			Children: slices.Clone(entry.Children),
		}
		task.Properties = taskProperties(entry, task, cfg)
		out = append(out, task)
	}

	cfg.Log.Debug("expand: entry expanded",
		"entry", title,
		"occurrences", len(occurrences),
		"excluded_dates", len(excluded),
		"tasks", len(out),
	)
	return out, nil
}

func taskProperties(entry model.ScheduleEntry, task model.TaskRecord, cfg ExpandConfig) notion.Properties {
	date := &notion.DateValue{}
	if task.AllDay {
		date.Start = task.Start.Format(dateLayout)
	} else {
		date.Start = task.Start.Format(time.RFC3339)
		if !task.End.IsZero() {
			end := task.End.Format(time.RFC3339)
			date.End = &end
		}
	}

	props := make(notion.Properties, len(entry.Extra)+4)
	props[cfg.TitleProperty] = notion.TitleProperty{Title: entry.Title}
	props[entry.DateField] = notion.DateProperty{Date: date}
	props[cfg.MarkerProperty] = notion.RichTextProperty{
		RichText: []notion.RichText{notion.Text(model.Marker(entry.ID))},
	}
	props[cfg.DoneProperty] = notion.CheckboxProperty{Checkbox: task.Done}
	for _, x := range entry.Extra {
		props[x.Name] = x.Value
	}
	return props
}

// isExcluded compares calendar dates only. Both lists are short, so a
// linear scan is fine.
func isExcluded(date time.Time, excluded []time.Time, loc *time.Location) bool {
	for _, ex := range excluded {
		if startOfDay(ex.In(loc)).Equal(date) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// clock is a wall-clock time of day.
type clock struct {
	hour, min, sec, nsec int
}

func clockOf(t time.Time) clock {
	return clock{t.Hour(), t.Minute(), t.Second(), t.Nanosecond()}
}

// on places the clock on date's calendar day in date's location.
func (c clock) on(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.hour, c.min, c.sec, c.nsec, date.Location())
}

type timeWindow struct {
	start clock
	end   *clock
}

// parseWindow extracts the time-of-day window from a Notion date. A nil or
// date-only value means no window.
func parseWindow(d *notion.DateValue, loc *time.Location) (*timeWindow, error) {
	if d == nil || d.Start == "" {
		return nil, nil
	}
	zone := loc
	if d.TimeZone != nil && *d.TimeZone != "" {
		z, err := time.LoadLocation(*d.TimeZone)
		if err != nil {
			return nil, err
		}
		zone = z
	}

	start, hasTime, err := parseClock(d.Start, zone, loc)
	if err != nil || !hasTime {
		return nil, err
	}
	w := &timeWindow{start: start}

	if d.End != nil && *d.End != "" {
		end, hasTime, err := parseClock(*d.End, zone, loc)
		if err != nil {
			return nil, err
		}
		if hasTime {
			w.end = &end
		}
	}
	return w, nil
}

// parseClock reads the wall clock of an ISO 8601 value as seen in out.
// Values without an offset are interpreted in zone.
func parseClock(s string, zone, out *time.Location) (clock, bool, error) {
	if len(s) == len(dateLayout) {
		_, err := time.Parse(dateLayout, s)
		return clock{}, false, err
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return clockOf(t.In(out)), true, nil
	}
	t, err := time.ParseInLocation(localDateTimeParse, s, zone)
	if err != nil {
		return clock{}, false, err
	}
	return clockOf(t.In(out)), true, nil
}
