package textparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	fullDateRE = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	// Go's regexp has no lookahead, so the trailing-dot and contextual short
	// forms anchor on end-of-string or a following non-digit instead.
	shortDateDotRE = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.([^\d]|$)`)
	prepDateRE     = regexp.MustCompile(`(?:am|den|vom|bis|ab)\s*(\d{1,2})\.(\d{1,2})([^\d.]|$)`)
	cueDateRE      = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\s*(?:um|uhr|kommen|gehen|möchte)`)

	clockRE    = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	uhrRE      = regexp.MustCompile(`(\d{1,2})\s*uhr`)
	dayMonthRE = regexp.MustCompile(`\d{1,2}\.\d{1,2}`)
	weekdayRE  = regexp.MustCompile(`montag|dienstag|mittwoch|donnerstag|freitag|samstag|sonntag`)
	relDateRE  = regexp.MustCompile(`heute|morgen|übermorgen|nächste woche|diese woche`)
)

// ExtractDateOnly extracts a date from German text and returns it as
// YYYY-MM-DD, or "" if no date is found. Recognized forms, in order:
// "übermorgen"/"morgen", DD.MM.YYYY, DD.MM. with trailing dot, and bare
// DD.MM when a preposition ("am 9.1") or a time/verb cue ("9.1 um 10")
// disambiguates it from decimal numbers. Short forms without a year assume
// the current year unless the result would be more than 7 days in the past,
// in which case the next year is used.
func ExtractDateOnly(text string, now time.Time) string {
	lower := strings.ToLower(text)

	// übermorgen first so "morgen" does not shadow it
	if strings.Contains(lower, "übermorgen") {
		return now.AddDate(0, 0, 2).Format("2006-01-02")
	}
	if strings.Contains(lower, "morgen") {
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	}

	if m := fullDateRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}

	if m := shortDateDotRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return buildDateSmartYear(day, month, now)
	}

	for _, re := range []*regexp.Regexp{prepDateRE, cueDateRE} {
		if m := re.FindStringSubmatch(lower); m != nil {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			return buildDateSmartYear(day, month, now)
		}
	}

	return ""
}

// buildDateSmartYear resolves a day/month pair without a year. Dates more
// than 7 days in the past roll over to the next year. Impossible dates
// (Feb 30) yield "".
func buildDateSmartYear(day, month int, now time.Time) string {
	candidate := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
	if candidate.Day() != day || candidate.Month() != time.Month(month) {
		return ""
	}
	if candidate.Before(now.AddDate(0, 0, -7)) {
		candidate = time.Date(now.Year()+1, time.Month(month), day, 0, 0, 0, 0, now.Location())
		if candidate.Day() != day || candidate.Month() != time.Month(month) {
			return ""
		}
	}
	return candidate.Format("2006-01-02")
}

// ExtractTimeOnly extracts a clock time as HH:MM from "14:30" or "14 Uhr"
// forms. Hours over 23 and minutes over 59 are rejected, returning "".
func ExtractTimeOnly(text string) string {
	if m := clockRE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return ""
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}

	if m := uhrRE.FindStringSubmatch(strings.ToLower(text)); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour > 23 {
			return ""
		}
		return fmt.Sprintf("%02d:00", hour)
	}

	return ""
}

// ExtractDateTime extracts a full ISO 8601 datetime. It only returns a value
// when both a date and a time are present in the text; the UTC offset for loc
// is computed at call time so CET/CEST transitions are handled.
func ExtractDateTime(text string, now time.Time, loc *time.Location) string {
	date := ExtractDateOnly(text, now)
	clock := ExtractTimeOnly(text)
	if date == "" || clock == "" {
		return ""
	}
	return date + "T" + clock + ":00" + TimezoneOffset(now, loc)
}

// BuildDatetimeISO combines a YYYY-MM-DD date and an HH:MM time into an
// ISO 8601 datetime with the current UTC offset of loc. Returns "" when
// either part is missing.
func BuildDatetimeISO(date, clock string, now time.Time, loc *time.Location) string {
	if date == "" || clock == "" {
		return ""
	}
	return date + "T" + clock + ":00" + TimezoneOffset(now, loc)
}

// TimezoneOffset returns the UTC offset of loc at the given instant,
// formatted as "+01:00" / "+02:00".
func TimezoneOffset(now time.Time, loc *time.Location) string {
	if loc == nil {
		return "+01:00"
	}
	return now.In(loc).Format("-07:00")
}

// FormatDateGerman converts YYYY-MM-DD to the German DD.MM.YYYY form.
// Malformed input is returned unchanged.
func FormatDateGerman(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	return parts[2] + "." + parts[1] + "." + parts[0]
}

// HasDateCue reports whether the text contains independent evidence of a
// date: an explicit DD.MM pattern, a weekday name, or a relative-date word.
// Model-proposed dates are only trusted when such a cue exists.
func HasDateCue(text string) bool {
	lower := strings.ToLower(text)
	return dayMonthRE.MatchString(lower) || weekdayRE.MatchString(lower) || relDateRE.MatchString(lower)
}
