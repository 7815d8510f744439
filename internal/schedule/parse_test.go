package schedule

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"schedsync/internal/config"
	"schedsync/internal/notion"
)

func richText(s string) string {
	return `{"type":"rich_text","rich_text":[{"type":"text","text":{"content":"` + s + `"},"plain_text":"` + s + `"}]}`
}

func schedulePage(t *testing.T, extra string) notion.Page {
	t.Helper()
	data := `{
		"object": "page",
		"id": "sched-1",
		"properties": {
			"Name": {"type":"title","title":[
				{"type":"text","text":{"content":"Pay"},"plain_text":"Pay"},
				{"type":"text","text":{"content":"rent"},"plain_text":"rent"}
			]},
			"Recurrence": {"type":"rich_text","rich_text":[
				{"type":"text","text":{"content":"FREQ=MONTHLY;"},"plain_text":"FREQ=MONTHLY;"},
				{"type":"text","text":{"content":"BYMONTHDAY=1"},"plain_text":"BYMONTHDAY=1"}
			]},
			"Not on": {"type":"rich_text","rich_text":[]},
			"Time": {"type":"date","date":{"start":"2024-01-01T09:00:00.000+01:00","end":null,"time_zone":null}},
			"Reminder": ` + richText("1 day before") + `,
			"Date field": ` + richText("Due") + `,
			"Area": {"type":"select","select":{"id":"s1","name":"Finance","color":"green"}},
			"Created": {"type":"created_time","created_time":"2024-01-01T00:00:00.000Z"}` + extra + `
		}
	}`
	var page notion.Page
	if err := json.Unmarshal([]byte(data), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return page
}

func TestParseEntry(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	cfg.ExtraPropertiesToSync = []string{"Area"}

	entry, err := ParseEntry(schedulePage(t, ""), cfg)
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if entry.ID != "sched-1" || notion.PlainText(entry.Title) != "Pay rent" {
		t.Fatalf("entry = %+v", entry)
	}
	// Spans are joined with a space.
	if entry.Recurrence != "FREQ=MONTHLY; BYMONTHDAY=1" {
		t.Fatalf("Recurrence = %q", entry.Recurrence)
	}
	if entry.NotOn != "" || entry.Reminder != "1 day before" || entry.DateField != "Due" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Time == nil || entry.Time.Start != "2024-01-01T09:00:00.000+01:00" {
		t.Fatalf("Time = %+v", entry.Time)
	}
	if len(entry.Extra) != 1 || entry.Extra[0].Name != "Area" {
		t.Fatalf("Extra = %+v", entry.Extra)
	}
	sel, ok := entry.Extra[0].Value.(notion.SelectProperty)
	if !ok || sel.Select == nil || sel.Select.Name != "Finance" || sel.Select.ID != "" {
		t.Fatalf("Area = %#v", entry.Extra[0].Value)
	}
}

func TestParseEntryErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
		extra  string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "missing required property",
			mutate: func(c *config.Config) { c.RecurrenceProperty = "Repeat" },
			check: func(t *testing.T, err error) {
				var missing *notion.MissingFieldError
				if !errors.As(err, &missing) || missing.Field != "Repeat" {
					t.Fatalf("err = %v, want missing Repeat", err)
				}
			},
		},
		{
			name:   "wrong type",
			mutate: func(c *config.Config) { c.TimeProperty = "Reminder" },
			check: func(t *testing.T, err error) {
				var mismatch *notion.TypeMismatchError
				if !errors.As(err, &mismatch) || mismatch.Expected != notion.TypeDate || mismatch.Actual != notion.TypeRichText {
					t.Fatalf("err = %v, want date/rich_text mismatch", err)
				}
			},
		},
		{
			name:   "missing extra property",
			mutate: func(c *config.Config) { c.ExtraPropertiesToSync = []string{"Nope"} },
			check: func(t *testing.T, err error) {
				var missing *notion.MissingFieldError
				if !errors.As(err, &missing) || missing.Field != "Nope" {
					t.Fatalf("err = %v, want missing Nope", err)
				}
			},
		},
		{
			name:   "unsupported extra property",
			mutate: func(c *config.Config) { c.ExtraPropertiesToSync = []string{"Created"} },
			check: func(t *testing.T, err error) {
				var unsupported *notion.UnsupportedTypeError
				if !errors.As(err, &unsupported) || unsupported.Type != notion.TypeCreatedTime {
					t.Fatalf("err = %v, want unsupported created_time", err)
				}
			},
		},
		{
			name:   "hosted file extra property",
			mutate: func(c *config.Config) { c.ExtraPropertiesToSync = []string{"Scan"} },
			extra:  `, "Scan": {"type":"files","files":[{"name":"a.pdf","type":"file","file":{"url":"https://files.example.com/a.pdf"}}]}`,
			check: func(t *testing.T, err error) {
				var hosted *notion.HostedFileError
				if !errors.As(err, &hosted) || hosted.Field != "Scan" {
					t.Fatalf("err = %v, want hosted file error", err)
				}
			},
		},
		{
			name:   "empty date field name",
			mutate: func(c *config.Config) { c.DateFieldProperty = "Not on" },
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "is empty") {
					t.Fatalf("err = %v, want empty date field error", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			_, err := ParseEntry(schedulePage(t, tt.extra), cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "sched-1") {
				t.Fatalf("error does not name the record: %v", err)
			}
			tt.check(t, err)
		})
	}
}
