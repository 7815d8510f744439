package schedule

import (
	"fmt"
	"strings"

	"schedsync/internal/config"
	"schedsync/internal/model"
	"schedsync/internal/notion"
)

// ParseEntry reads a schedule database row into a ScheduleEntry using the
// property names from cfg. Every configured property must exist with the
// expected type; extra properties must exist and be copyable.
func ParseEntry(page notion.Page, cfg *config.Config) (model.ScheduleEntry, error) {
	entry, err := parseEntry(page, cfg)
	if err != nil {
		return model.ScheduleEntry{}, fmt.Errorf("schedule entry %s: %w", page.ID, err)
	}
	return entry, nil
}

func parseEntry(page notion.Page, cfg *config.Config) (model.ScheduleEntry, error) {
	props := page.Properties

	title, err := notion.ReadField[notion.TitleProperty](props, cfg.TitleInputProperty)
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	recurrence, err := readText(props, cfg.RecurrenceProperty)
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	notOn, err := readText(props, cfg.NotOnProperty)
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	window, err := notion.ReadField[notion.DateProperty](props, cfg.TimeProperty)
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	reminder, err := readText(props, cfg.ReminderProperty)
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	dateField, err := readText(props, cfg.DateFieldProperty)
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	if strings.TrimSpace(dateField) == "" {
		return model.ScheduleEntry{}, fmt.Errorf("property %q is empty; it must name the task date property", cfg.DateFieldProperty)
	}

	extra := make([]model.ExtraProperty, 0, len(cfg.ExtraPropertiesToSync))
	for _, name := range cfg.ExtraPropertiesToSync {
		prop, ok := props[name]
		if !ok {
			return model.ScheduleEntry{}, &notion.MissingFieldError{Field: name}
		}
		value, err := notion.ToInput(name, prop)
		if err != nil {
			return model.ScheduleEntry{}, err
		}
		extra = append(extra, model.ExtraProperty{Name: name, Value: value})
	}

	return model.ScheduleEntry{
		ID:         page.ID,
		Title:      title.Title,
		Recurrence: recurrence,
		NotOn:      notOn,
		Reminder:   reminder,
		Time:       window.Date,
		DateField:  strings.TrimSpace(dateField),
		Extra:      extra,
	}, nil
}

func readText(props notion.Properties, name string) (string, error) {
	p, err := notion.ReadField[notion.RichTextProperty](props, name)
	if err != nil {
		return "", err
	}
	return notion.PlainText(p.RichText), nil
}
