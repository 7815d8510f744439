package schedule

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ruleLines splits rule text into rrule-go set lines. Rules are often typed
// into a single rich text field, so any whitespace separates lines. A bare
// "FREQ=..." token becomes an RRULE line, DTSTART is moved first, and a
// DTSTART at defaultStart is added when the text has none.
func ruleLines(text string, defaultStart time.Time) []string {
	var (
		dtstart []string
		rest    []string
		hasOpt  bool
	)
	for _, tok := range strings.Fields(text) {
		name := lineName(tok)
		switch name {
		case "":
			tok = "RRULE:" + tok
			hasOpt = hasOpt || strings.Contains(strings.ToUpper(tok), "DTSTART=")
			rest = append(rest, tok)
		case "DTSTART":
			dtstart = append(dtstart, tok)
		default:
			if name == "RRULE" && strings.Contains(strings.ToUpper(tok), "DTSTART=") {
				hasOpt = true
			}
			rest = append(rest, tok)
		}
	}
	if len(dtstart) == 0 && !hasOpt {
		loc := defaultStart.Location()
		dtstart = append(dtstart, "DTSTART;TZID="+loc.String()+":"+defaultStart.Format("20060102T150405"))
	}
	return append(dtstart, rest...)
}

// lineName returns the property name of an iCalendar content line, or ""
// when tok is a bare rule body such as "FREQ=DAILY;COUNT=3".
func lineName(tok string) string {
	i := strings.IndexAny(tok, ";:")
	if i <= 0 {
		return ""
	}
	name := strings.ToUpper(tok[:i])
	if strings.Contains(name, "=") {
		return ""
	}
	return name
}

// evaluateRule expands rule text into ascending, distinct instants, at most
// limit of them. truncated reports whether the cap cut the expansion short.
func evaluateRule(text string, loc *time.Location, defaultStart time.Time, limit int) (times []time.Time, truncated bool, err error) {
	set, err := rrule.StrSliceToRRuleSetInLoc(ruleLines(text, defaultStart), loc)
	if err != nil {
		return nil, false, err
	}

	next := set.Iterator()
	for {
		t, ok := next()
		if !ok {
			return times, false, nil
		}
		if n := len(times); n > 0 && times[n-1].Equal(t) {
			continue
		}
		if len(times) == limit {
			return times, true, nil
		}
		times = append(times, t)
	}
}
