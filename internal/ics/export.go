package ics

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	ical "github.com/arran4/golang-ical"

	"schedsync/internal/model"
)

const productID = "-//schedsync//planned tasks//EN"

// WriteCalendar renders tasks as an iCalendar document with one VEVENT per
// task. Date-only tasks become all-day events spanning their day; timed
// tasks keep their start and, if present, end. stamp is used for DTSTAMP.
func WriteCalendar(w io.Writer, tasks []model.TaskRecord, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	for _, task := range tasks {
		ev := cal.AddEvent(eventUID(task))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(task.Title)
		ev.SetProperty(ical.ComponentPropertyStatus, "CONFIRMED")

		if task.AllDay {
			ev.SetAllDayStartAt(task.Start)
			ev.SetAllDayEndAt(task.Start.AddDate(0, 0, 1))
			continue
		}
		ev.SetStartAt(task.Start)
		if !task.End.IsZero() {
			ev.SetEndAt(task.End)
		}
	}

	return cal.SerializeTo(w)
}

func eventUID(task model.TaskRecord) string {
	if task.AllDay {
		return task.SourceID + "-" + task.Start.Format("20060102")
	}
	return task.SourceID + "-" + task.Start.UTC().Format("20060102T150405Z")
}

// ExportFile writes the calendar to path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func ExportFile(path string, tasks []model.TaskRecord, stamp time.Time) error {
	if path == "" {
		return errors.New("export path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".schedsync-export-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if err := WriteCalendar(tmp, tasks, stamp); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
