package timeparse

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrUnparseable marks input that no resolution tier could interpret.
// Callers treat it as non-fatal and pick their own fallback.
var ErrUnparseable = errors.New("unparseable date/time")

const (
	LayoutDay      = "2006-01-02"
	LayoutDateTime = "2006-01-02 15:04"
	LayoutClock    = "15:04"
)

// Layouts accepted as "full date-time with optional zone offset".
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	LayoutDateTime,
}

// Loose calendar patterns tried after the exact forms. Patterns without a
// year inherit the reference year.
var loosePatterns = []string{
	"2006/01/02",
	"01/02",
	"Jan 2 2006",
	"Jan 2",
	"January 2 2006",
	"January 2",
	"2006/01/02 15:04",
	"01/02/2006 15:04",
}

var relativeDays = map[string]int{
	"today": 0, "今天": 0,
	"tomorrow": 1, "tmr": 1, "明天": 1,
	"yesterday": -1, "昨天": -1,
}

var (
	embeddedDayRe   = regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`)
	embeddedClockRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// ResolveDay turns a free-form date string into the start of the matching
// day in ref's location. Time-of-day information in the input is discarded.
func ResolveDay(s string, ref time.Time) (time.Time, error) {
	t, err := resolve(s, ref)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t), nil
}

// Resolve turns a free-form date/time string into an absolute timestamp,
// keeping the detected time-of-day. Day-only input resolves to 00:00.
func Resolve(s string, ref time.Time) (time.Time, error) {
	return resolve(s, ref)
}

func resolve(s string, ref time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, ErrUnparseable
	}
	loc := ref.Location()

	// (a) exact calendar date
	if t, err := time.ParseInLocation(LayoutDay, trimmed, loc); err == nil {
		return t, nil
	}

	// (b) full date-time, optionally zoned
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return t.In(loc), nil
		}
	}

	// (c) loose calendar patterns
	for _, layout := range loosePatterns {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			if t.Year() == 0 {
				t = time.Date(ref.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
			}
			return t, nil
		}
	}

	// (d) relative keywords against ref's start of day
	if offset, ok := relativeDays[strings.ToLower(trimmed)]; ok {
		return StartOfDay(ref).AddDate(0, 0, offset), nil
	}

	// (e) last resort: scan for an embedded date and/or clock
	return detect(trimmed, ref)
}

// detect pulls a date and an optional wall clock out of longer text, e.g.
// "meet on 2025-08-25 at 18:30". A clock without a date anchors to ref's day.
func detect(s string, ref time.Time) (time.Time, error) {
	loc := ref.Location()
	day := time.Time{}
	if m := embeddedDayRe.FindString(s); m != "" {
		parts := strings.SplitN(m, "-", 3)
		t, err := time.ParseInLocation(LayoutDay, normalizeDay(parts), loc)
		if err == nil {
			day = t
		}
	}
	lower := strings.ToLower(s)
	if day.IsZero() {
		for word, offset := range relativeDays {
			if strings.Contains(lower, word) {
				day = StartOfDay(ref).AddDate(0, 0, offset)
				break
			}
		}
	}

	clock := embeddedClockRe.FindStringSubmatch(s)
	if day.IsZero() && clock == nil {
		return time.Time{}, ErrUnparseable
	}
	if day.IsZero() {
		day = StartOfDay(ref)
	}
	if clock != nil {
		hm, err := time.Parse(LayoutClock, pad2(clock[1])+":"+clock[2])
		if err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
		}
	}
	return day, nil
}

func normalizeDay(parts []string) string {
	if len(parts) != 3 {
		return ""
	}
	return parts[0] + "-" + pad2(parts[1]) + "-" + pad2(parts[2])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CombineDayClock builds a timestamp from a YYYY-MM-DD day and an HH:MM
// clock in loc. An empty clock means midnight.
func CombineDayClock(day, clock string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(clock) == "" {
		clock = "00:00"
	}
	t, err := time.ParseInLocation(LayoutDateTime, strings.TrimSpace(day)+" "+strings.TrimSpace(clock), loc)
	if err != nil {
		return time.Time{}, ErrUnparseable
	}
	return t, nil
}

// IsDay reports whether s is an exact YYYY-MM-DD date.
func IsDay(s string) bool {
	_, err := time.Parse(LayoutDay, strings.TrimSpace(s))
	return err == nil
}

// IsClock reports whether s is an exact HH:MM wall clock.
func IsClock(s string) bool {
	_, err := time.Parse(LayoutClock, strings.TrimSpace(s))
	return err == nil
}

// IsDateTime reports whether s is one of the accepted absolute date-time
// forms (used by the validator, which never resolves relative words).
func IsDateTime(s string) bool {
	trimmed := strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, trimmed); err == nil {
			return true
		}
	}
	return false
}
