package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration, read from a YAML file
// with camelCase keys.
type Config struct {
	// TasksDatabaseID is the Notion database receiving generated tasks.
	TasksDatabaseID string `yaml:"tasksDatabaseId"`
	// ScheduleDatabaseID is the Notion database holding schedule entries.
	ScheduleDatabaseID string `yaml:"scheduleDatabaseId"`
	// Token is the Notion integration secret.
	Token string `yaml:"token"`
	// TimeZone is the IANA zone generated dates are rendered in (e.g. "Europe/Berlin").
	TimeZone string `yaml:"timeZone"`

	// ExtraPropertiesToSync names schedule properties copied verbatim onto
	// every generated task.
	ExtraPropertiesToSync []string `yaml:"extraPropertiesToSync"`

	TitleInputProperty     string `yaml:"titleInputProperty"`
	TitleOutputProperty    string `yaml:"titleOutputProperty"`
	DoneOutputProperty     string `yaml:"doneOutputProperty"`
	RecurrenceProperty     string `yaml:"recurrenceProperty"`
	NotOnProperty          string `yaml:"notOnProperty"`
	TimeProperty           string `yaml:"timeProperty"`
	ReminderProperty       string `yaml:"reminderProperty"`
	DateFieldProperty      string `yaml:"dateFieldProperty"`
	RecurrenceInfoProperty string `yaml:"recurrenceInfoProperty"`

	// ActiveInputProperty, if set, names a checkbox on schedule entries;
	// only checked entries are expanded.
	ActiveInputProperty string `yaml:"activeInputProperty"`

	// RequestsPerSecond paces calls to the Notion API.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`

	// CalendarExportPath, if set, receives an .ics file with every task a
	// run plans to create.
	CalendarExportPath string `yaml:"calendarExportPath"`

	// RefreshCron, if set, keeps the process running and repeats the sync
	// on this cron schedule (standard 5-field syntax, evaluated in TimeZone).
	RefreshCron string `yaml:"refreshCron"`

	loc *time.Location
}

// DefaultConfig returns a configuration with every optional field at its
// default. Required fields are left empty.
func DefaultConfig() *Config {
	return &Config{
		ExtraPropertiesToSync:  []string{},
		TitleInputProperty:     "Name",
		TitleOutputProperty:    "Name",
		DoneOutputProperty:     "Done",
		RecurrenceProperty:     "Recurrence",
		NotOnProperty:          "Not on",
		TimeProperty:           "Time",
		ReminderProperty:       "Reminder",
		DateFieldProperty:      "Date field",
		RecurrenceInfoProperty: "Recurrence info",
		RequestsPerSecond:      3,
	}
}

// Normalize fills in missing optional values with their defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.ExtraPropertiesToSync == nil {
		c.ExtraPropertiesToSync = d.ExtraPropertiesToSync
	}
	setDefault(&c.TitleInputProperty, d.TitleInputProperty)
	setDefault(&c.TitleOutputProperty, d.TitleOutputProperty)
	setDefault(&c.DoneOutputProperty, d.DoneOutputProperty)
	setDefault(&c.RecurrenceProperty, d.RecurrenceProperty)
	setDefault(&c.NotOnProperty, d.NotOnProperty)
	setDefault(&c.TimeProperty, d.TimeProperty)
	setDefault(&c.ReminderProperty, d.ReminderProperty)
	setDefault(&c.DateFieldProperty, d.DateFieldProperty)
	setDefault(&c.RecurrenceInfoProperty, d.RecurrenceInfoProperty)
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = d.RequestsPerSecond
	}
}

func setDefault(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

// Location returns the zone resolved from TimeZone by Validate, or UTC when
// the config has not been validated.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// ValidationError lists every constraint a config file violates.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("could not validate config file:")
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v)
	}
	return b.String()
}

// Validate checks the configuration and resolves TimeZone. All violations
// are collected into a single *ValidationError.
func (c *Config) Validate() error {
	var violations []string
	required := []struct {
		key, value string
	}{
		{"tasksDatabaseId", c.TasksDatabaseID},
		{"scheduleDatabaseId", c.ScheduleDatabaseID},
		{"token", c.Token},
		{"timeZone", c.TimeZone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			violations = append(violations, fmt.Sprintf("%s must be a non-empty string", r.key))
		}
	}

	if c.TimeZone != "" {
		loc, err := time.LoadLocation(c.TimeZone)
		if err != nil {
			violations = append(violations, fmt.Sprintf("timeZone %q is not a known IANA time zone", c.TimeZone))
		} else {
			c.loc = loc
		}
	}

	for i, name := range c.ExtraPropertiesToSync {
		if strings.TrimSpace(name) == "" {
			violations = append(violations, fmt.Sprintf("extraPropertiesToSync[%d] must be a non-empty string", i))
		}
	}

	if c.RequestsPerSecond <= 0 {
		violations = append(violations, "requestsPerSecond must be positive")
	}

	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			violations = append(violations, fmt.Sprintf("refreshCron %q is invalid: %v", c.RefreshCron, err))
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Load reads, parses and validates the YAML config at path.
//
// Type errors and unknown keys are reported together with the semantic
// checks from Validate instead of stopping at the first problem.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	var violations []string
	cfg := &Config{}

	if len(root.Content) > 0 {
		doc := root.Content[0]
		if doc.Kind != yaml.MappingNode {
			return nil, errors.New("cannot parse config file: top level must be a mapping")
		}
		violations = append(violations, unknownKeys(doc)...)

		if err := doc.Decode(cfg); err != nil {
			var typeErr *yaml.TypeError
			if !errors.As(err, &typeErr) {
				return nil, fmt.Errorf("cannot parse config file: %w", err)
			}
			violations = append(violations, typeErr.Errors...)
		}
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			violations = append(violations, vErr.Violations...)
		}
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return cfg, nil
}

var knownKeys = map[string]bool{
	"tasksDatabaseId":        true,
	"scheduleDatabaseId":     true,
	"token":                  true,
	"timeZone":               true,
	"extraPropertiesToSync":  true,
	"titleInputProperty":     true,
	"titleOutputProperty":    true,
	"doneOutputProperty":     true,
	"recurrenceProperty":     true,
	"notOnProperty":          true,
	"timeProperty":           true,
	"reminderProperty":       true,
	"dateFieldProperty":      true,
	"recurrenceInfoProperty": true,
	"activeInputProperty":    true,
	"requestsPerSecond":      true,
	"calendarExportPath":     true,
	"refreshCron":            true,
}

func unknownKeys(mapping *yaml.Node) []string {
	var out []string
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i]
		if !knownKeys[key.Value] {
			out = append(out, fmt.Sprintf("line %d: unknown key %q", key.Line, key.Value))
		}
	}
	return out
}
