package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/easyfitness/trainerbot/internal/textparse"
)

var clockFormatRE = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Reconcile merges the rule-based and model-based extraction results into a
// single validated Result. Names and emails prefer the model value when it
// passes the shared validators, with the rules value as fallback. Dates
// trust the rules first; a model date is only accepted when the raw message
// carries an independent date cue, which blocks the model from inventing
// plausible-looking dates for messages that mention none.
func Reconcile(rules, model Result, text string, now time.Time) Result {
	return Result{
		FirstName: pickName(model.FirstName, rules.FirstName),
		LastName:  pickName(model.LastName, rules.LastName),
		Email:     pickEmail(model.Email, rules.Email),
		Date:      pickDate(rules.Date, model.Date, text, now),
		Time:      pickTime(model.Time, rules.Time),
	}
}

func pickName(model, rules string) string {
	if textparse.IsValidName(strings.TrimSpace(model)) {
		return strings.TrimSpace(model)
	}
	if textparse.IsValidName(rules) {
		return rules
	}
	return ""
}

func pickEmail(model, rules string) string {
	if textparse.IsValidEmail(model) {
		return strings.ToLower(strings.TrimSpace(model))
	}
	if textparse.IsValidEmail(rules) {
		return strings.ToLower(rules)
	}
	return ""
}

func pickDate(rules, model, text string, now time.Time) string {
	if isPlausibleDate(rules, now) {
		return rules
	}
	if model != "" && textparse.HasDateCue(text) && isPlausibleDate(model, now) {
		return model
	}
	return ""
}

// isPlausibleDate bounds-checks a YYYY-MM-DD candidate: years before 2020
// are placeholder artifacts, more than 365 days ahead or more than 7 days
// back is not a booking request.
func isPlausibleDate(date string, now time.Time) bool {
	if date == "" {
		return false
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	if parsed.Year() < 2020 {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if parsed.Before(today.AddDate(0, 0, -7)) {
		return false
	}
	if parsed.After(today.AddDate(0, 0, 365)) {
		return false
	}
	return true
}

func pickTime(model, rules string) string {
	if t := normalizeClock(model); t != "" {
		return t
	}
	return normalizeClock(rules)
}

// normalizeClock validates an HH:MM candidate and zero-pads the hour.
// Out-of-range values are dropped, not clamped.
func normalizeClock(clock string) string {
	m := clockFormatRE.FindStringSubmatch(strings.TrimSpace(clock))
	if m == nil {
		return ""
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
