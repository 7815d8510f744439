package schedule

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"schedsync/internal/model"
	"schedsync/internal/notion"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func testConfig(loc *time.Location) ExpandConfig {
	return ExpandConfig{
		Location:       loc,
		TitleProperty:  "Name",
		DoneProperty:   "Done",
		MarkerProperty: "Recurrence info",
	}
}

func testEntry(recurrence string) model.ScheduleEntry {
	return model.ScheduleEntry{
		ID:         "entry-1",
		Title:      []notion.RichText{notion.Text("Stretch")},
		Recurrence: recurrence,
		DateField:  "Due",
	}
}

func strPtr(s string) *string { return &s }

func dateOf(t *testing.T, task model.TaskRecord, field string) notion.DateValue {
	t.Helper()
	p, err := notion.ReadField[notion.DateProperty](task.Properties, field)
	if err != nil {
		t.Fatalf("read date property: %v", err)
	}
	if p.Date == nil {
		t.Fatal("date property is empty")
	}
	return *p.Date
}

func TestExpandPlainDates(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240301T080000\nRRULE:FREQ=DAILY;COUNT=3")
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, loc)

	tasks, err := Expand(entry, now, testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []string{"2024-03-01", "2024-03-02", "2024-03-03"}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i, task := range tasks {
		d := dateOf(t, task, "Due")
		if d.Start != want[i] || d.End != nil {
			t.Fatalf("task %d date = %+v, want %s with no end", i, d, want[i])
		}
		if !task.AllDay || !task.End.IsZero() || task.Done {
			t.Fatalf("task %d = %+v", i, task)
		}
	}
}

func TestExpandEmptyRuleFails(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, loc)
	rules := []string{
		"DTSTART:20240301T000000Z\nRRULE:FREQ=DAILY;UNTIL=20240201T000000Z",
		"",
		"this is not a rule",
	}
	for _, rule := range rules {
		_, err := Expand(testEntry(rule), now, testConfig(loc))
		var invalid *InvalidRecurrenceError
		if !errors.As(err, &invalid) {
			t.Fatalf("rule %q: err = %v, want *InvalidRecurrenceError", rule, err)
		}
		if invalid.Title != "Stretch" || !strings.Contains(err.Error(), "Stretch") {
			t.Fatalf("error does not name the entry: %v", err)
		}
	}
}

func TestExpandExclusionIgnoresTimeOfDay(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240301T080000 RRULE:FREQ=DAILY;COUNT=3")
	entry.NotOn = "DTSTART;TZID=Europe/Berlin:20240302T231500 RRULE:FREQ=DAILY;COUNT=1"
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, loc)

	tasks, err := Expand(entry, now, testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	var got []string
	for _, task := range tasks {
		got = append(got, dateOf(t, task, "Due").Start)
	}
	if strings.Join(got, ",") != "2024-03-01,2024-03-03" {
		t.Fatalf("dates = %v, want 2024-03-02 excluded", got)
	}
}

func TestExpandExclusionWithoutMatches(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240301T000000 RRULE:FREQ=WEEKLY;COUNT=2")
	entry.NotOn = "DTSTART;TZID=Europe/Berlin:20240303T000000 RRULE:FREQ=WEEKLY;COUNT=2"
	tasks, err := Expand(entry, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
}

func TestExpandTimeWindow(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240301T000000 RRULE:FREQ=MONTHLY;COUNT=2")
	entry.Time = &notion.DateValue{
		Start: "2024-01-10T09:00:00.000+01:00",
		End:   strPtr("2024-01-10T10:00:00.000+01:00"),
	}
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, loc)

	tasks, err := Expand(entry, now, testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}

	d := dateOf(t, tasks[0], "Due")
	if d.Start != "2024-03-01T09:00:00+01:00" || d.End == nil || *d.End != "2024-03-01T10:00:00+01:00" {
		t.Fatalf("first date = %s / %v", d.Start, d.End)
	}
	// Wall clock is kept across the DST change at the end of March.
	d = dateOf(t, tasks[1], "Due")
	if d.Start != "2024-04-01T09:00:00+02:00" || *d.End != "2024-04-01T10:00:00+02:00" {
		t.Fatalf("second date = %s / %v", d.Start, *d.End)
	}
	if tasks[0].AllDay {
		t.Fatal("task with window marked all-day")
	}
}

func TestExpandWindowInOtherZone(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240301T000000 RRULE:FREQ=DAILY;COUNT=1")
	entry.Time = &notion.DateValue{Start: "2024-01-10T09:00:00.000", TimeZone: strPtr("America/New_York")}

	tasks, err := Expand(entry, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	d := dateOf(t, tasks[0], "Due")
	if d.Start != "2024-03-01T15:00:00+01:00" || d.End != nil {
		t.Fatalf("date = %s / %v, want 15:00 Berlin and no end", d.Start, d.End)
	}
}

func TestExpandDateOnlyWindowIsAllDay(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240301T000000 RRULE:FREQ=DAILY;COUNT=1")
	entry.Time = &notion.DateValue{Start: "2024-01-10"}

	tasks, err := Expand(entry, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !tasks[0].AllDay || dateOf(t, tasks[0], "Due").Start != "2024-03-01" {
		t.Fatalf("task = %+v", tasks[0])
	}
}

func TestExpandSkipsPastOccurrences(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240229T000000 RRULE:FREQ=DAILY;COUNT=4")
	entry.Time = &notion.DateValue{
		Start: "2024-01-10T22:00:00+01:00",
		End:   strPtr("2024-01-10T23:00:00+01:00"),
	}
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, loc)

	tasks, err := Expand(entry, now, testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2 (Mar 2 and Mar 3)", len(tasks))
	}
	if got := dateOf(t, tasks[0], "Due").Start; got != "2024-03-02T22:00:00+01:00" {
		t.Fatalf("first kept = %s", got)
	}
}

func TestExpandDoneFlagUsesExactInstant(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240301T000000 RRULE:FREQ=DAILY;COUNT=1")
	entry.Time = &notion.DateValue{
		Start: "2024-01-10T09:00:00+01:00",
		End:   strPtr("2024-01-10T10:00:00+01:00"),
	}

	morning := time.Date(2024, 3, 1, 8, 0, 0, 0, loc)
	tasks, err := Expand(entry, morning, testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Done {
		t.Fatalf("at 08:00: tasks = %+v, want one open task", tasks)
	}

	later := time.Date(2024, 3, 1, 10, 30, 0, 0, loc)
	tasks, err = Expand(entry, later, testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(tasks) != 1 || !tasks[0].Done {
		t.Fatalf("at 10:30: tasks = %+v, want one done task", tasks)
	}
	done, _ := notion.ReadField[notion.CheckboxProperty](tasks[0].Properties, "Done")
	if !done.Checkbox {
		t.Fatal("Done property not set")
	}
}

func TestExpandAllDayTodayIsKept(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240301T000000 RRULE:FREQ=DAILY;COUNT=2")
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, loc)

	tasks, err := Expand(entry, now, testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if !tasks[0].Done || tasks[1].Done {
		t.Fatalf("done flags = %v, %v; want today's start already passed", tasks[0].Done, tasks[1].Done)
	}
}

func TestExpandDefaultsStartToToday(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, loc)

	tasks, err := Expand(testEntry("FREQ=DAILY;COUNT=2"), now, testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if got := dateOf(t, tasks[0], "Due").Start; got != "2024-03-01" {
		t.Fatalf("first date = %s, want today", got)
	}
}

func TestExpandOutputProperties(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	entry := testEntry("DTSTART;TZID=Europe/Berlin:20240301T000000 RRULE:FREQ=DAILY;COUNT=1")
	n := 3.0
	entry.Extra = []model.ExtraProperty{
		{Name: "Effort", Value: notion.NumberProperty{Number: &n}},
		{Name: "Tags", Value: notion.MultiSelectProperty{MultiSelect: []notion.SelectOption{{Name: "home"}}}},
	}
	entry.Children = []notion.Block{{Type: "paragraph", Content: json.RawMessage(`{"rich_text":[]}`)}}

	tasks, err := Expand(entry, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), testConfig(loc))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	task := tasks[0]

	title, err := notion.ReadField[notion.TitleProperty](task.Properties, "Name")
	if err != nil || notion.PlainText(title.Title) != "Stretch" {
		t.Fatalf("title = %+v, %v", title, err)
	}
	marker, err := notion.ReadField[notion.RichTextProperty](task.Properties, "Recurrence info")
	if err != nil || notion.PlainText(marker.RichText) != "ID entry-1" {
		t.Fatalf("marker = %+v, %v", marker, err)
	}
	effort, err := notion.ReadField[notion.NumberProperty](task.Properties, "Effort")
	if err != nil || effort.Number == nil || *effort.Number != 3 {
		t.Fatalf("effort = %+v, %v", effort, err)
	}
	if _, err := notion.ReadField[notion.MultiSelectProperty](task.Properties, "Tags"); err != nil {
		t.Fatalf("tags: %v", err)
	}
	if len(task.Properties) != 6 {
		t.Fatalf("got %d properties, want 6", len(task.Properties))
	}
	if len(task.Children) != 1 || task.Children[0].Type != "paragraph" {
		t.Fatalf("children = %+v", task.Children)
	}
	if task.SourceID != "entry-1" || task.Title != "Stretch" {
		t.Fatalf("task = %+v", task)
	}
}

func TestExpandCapsUnboundedRules(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	cfg := testConfig(loc)
	cfg.MaxOccurrencesPerRule = 10

	tasks, err := Expand(testEntry("DTSTART;TZID=Europe/Berlin:20240301T000000 RRULE:FREQ=DAILY"),
		time.Date(2024, 2, 1, 0, 0, 0, 0, loc), cfg)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(tasks) != 10 {
		t.Fatalf("got %d tasks, want cap of 10", len(tasks))
	}
}

func TestRuleLines(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{"FREQ=DAILY;COUNT=2", "DTSTART;TZID=UTC:20240301T000000|RRULE:FREQ=DAILY;COUNT=2"},
		{"RRULE:FREQ=WEEKLY DTSTART:20240105T090000Z", "DTSTART:20240105T090000Z|RRULE:FREQ=WEEKLY"},
		{"FREQ=DAILY;DTSTART=20240105T090000Z", "RRULE:FREQ=DAILY;DTSTART=20240105T090000Z"},
		{"FREQ=DAILY\nEXDATE:20240302T000000Z", "DTSTART;TZID=UTC:20240301T000000|RRULE:FREQ=DAILY|EXDATE:20240302T000000Z"},
	}
	for _, tt := range tests {
		if got := strings.Join(ruleLines(tt.in, start), "|"); got != tt.want {
			t.Errorf("ruleLines(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
