// Package textparse contains pure, stateless extractors that turn raw German
// customer messages into candidate booking data: names, email addresses,
// dates, times and a booking-intent signal. All functions return the zero
// value when nothing usable is found; they never error.
package textparse

import (
	"regexp"
	"strings"
	"unicode"
)

// nameBlacklist holds words that capitalized-word heuristics keep mis-reading
// as names because they sit next to the data we actually extract
// ("Meine Emailadresse ist ..." must not yield the surname "Emailadresse").
// Checked case-insensitively.
var nameBlacklist = map[string]struct{}{
	// email context
	"emailadresse": {}, "email": {}, "mail": {}, "adresse": {}, "ist": {}, "meine": {}, "mein": {},
	// articles and pronouns
	"der": {}, "die": {}, "das": {}, "ein": {}, "eine": {}, "ich": {}, "du": {}, "und": {}, "oder": {},
	// booking context
	"termin": {}, "probetraining": {}, "training": {}, "uhr": {}, "uhrzeit": {}, "datum": {},
	// weekdays
	"montag": {}, "dienstag": {}, "mittwoch": {}, "donnerstag": {}, "freitag": {}, "samstag": {}, "sonntag": {},
	// months
	"januar": {}, "februar": {}, "märz": {}, "april": {}, "mai": {}, "juni": {},
	"juli": {}, "august": {}, "september": {}, "oktober": {}, "november": {}, "dezember": {},
	// fillers
	"hallo": {}, "bitte": {}, "danke": {}, "ja": {}, "nein": {}, "super": {}, "toll": {},
	"kommen": {}, "möchte": {}, "würde": {}, "kann": {}, "gerne": {},
}

// sentenceStarters are verbs that follow a capitalized first word in normal
// sentences ("Ich bin ...", "Max möchte ..."), used to keep the
// two-capitalized-words heuristic from treating sentence openings as names.
var sentenceStarters = map[string]struct{}{
	"ist": {}, "bin": {}, "habe": {}, "möchte": {}, "will": {}, "kann": {}, "heiße": {}, "heisse": {},
}

var (
	emailRE    = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)
	strictMail = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	surnameRE  = regexp.MustCompile(`(?i)nachname\s+ist\s+(\S+)`)
	forenameRE = regexp.MustCompile(`(?i)vorname\s+ist\s+(\S+)`)
)

// ExtractName returns the first name following a German self-introduction
// phrase ("ich heiße Max", "mein Name ist Anna"), or "" if none is found.
func ExtractName(text string) string {
	lower := strings.ToLower(text)
	triggers := []string{"ich heiße", "ich heisse", "mein name ist", "bin der ", "bin die ", "ich bin "}

	for _, trigger := range triggers {
		idx := strings.LastIndex(lower, trigger)
		if idx < 0 {
			continue
		}
		fields := strings.Fields(strings.TrimSpace(lower[idx+len(trigger):]))
		if len(fields) == 0 {
			continue
		}
		candidate := capitalize(fields[0])
		cl := strings.ToLower(candidate)
		if len([]rune(candidate)) >= 2 && len([]rune(candidate)) <= 20 &&
			cl != "ich" && cl != "der" && cl != "die" && cl != "und" {
			return candidate
		}
	}
	return ""
}

// ExtractFullName extracts first and last name from a message. Patterns are
// tried in priority order: explicit "mein Vorname/Nachname ist X" statements,
// introduction phrases followed by two tokens, a name directly before an
// email address, and finally two capitalized words at the start of the
// message. Either return value may be empty.
func ExtractFullName(text string) (string, string) {
	// Explicit single-field statements
	if m := surnameRE.FindStringSubmatch(text); m != nil {
		if candidate := strings.Trim(m[1], ",.!?"); IsValidName(candidate) {
			return "", capitalize(candidate)
		}
	}
	if m := forenameRE.FindStringSubmatch(text); m != nil {
		if candidate := strings.Trim(m[1], ",.!?"); IsValidName(candidate) {
			return capitalize(candidate), ""
		}
	}

	// Introduction phrase followed by two usable tokens
	lower := strings.ToLower(text)
	for _, trigger := range []string{"ich heiße ", "ich heisse ", "mein name ist ", "ich bin "} {
		idx := strings.Index(lower, trigger)
		if idx < 0 {
			continue
		}
		words := strings.Fields(strings.TrimSpace(text[idx+len(trigger):]))
		if len(words) < 2 {
			continue
		}
		skip := map[string]struct{}{"der": {}, "die": {}, "das": {}, "ein": {}, "eine": {}, "und": {}, "oder": {}}
		var clean []string
		for i, w := range words {
			if i >= 3 {
				break
			}
			if _, ok := skip[strings.ToLower(w)]; !ok {
				clean = append(clean, w)
			}
		}
		if len(clean) >= 2 {
			first := strings.Trim(clean[0], ",.!?")
			last := strings.Trim(clean[1], ",.!?")
			if IsValidName(first) && IsValidName(last) {
				return capitalize(first), capitalize(last)
			}
		}
	}

	// Name immediately before an email address
	if loc := emailRE.FindStringIndex(text); loc != nil {
		before := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text[:loc[0]]), ","))
		words := strings.Fields(before)
		switch {
		case len(words) >= 2:
			first := strings.Trim(words[len(words)-2], ",.!?")
			last := strings.Trim(words[len(words)-1], ",.!?")
			if IsValidName(first) && IsValidName(last) {
				return capitalize(first), capitalize(last)
			}
		case len(words) == 1:
			first := strings.Trim(words[0], ",.!?")
			if IsValidName(first) {
				return capitalize(first), ""
			}
		}
	}

	// Two capitalized words at the start of the message
	words := strings.Fields(text)
	if len(words) >= 2 {
		first := strings.Trim(words[0], ",.!?")
		last := strings.Trim(words[1], ",.!?")
		if startsUpper(first) && startsUpper(last) && IsValidName(first) && IsValidName(last) {
			if _, starter := sentenceStarters[strings.ToLower(last)]; !starter {
				return first, last
			}
		}
	}

	return "", ""
}

// IsValidName reports whether a token plausibly is a person's name:
// 2-30 characters, at least 80% letters, and not a blacklisted context word.
func IsValidName(name string) bool {
	runes := []rune(name)
	if len(runes) < 2 || len(runes) > 30 {
		return false
	}
	if _, blocked := nameBlacklist[strings.ToLower(name)]; blocked {
		return false
	}
	letters := 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters) >= float64(len(runes))*0.8
}

// ExtractEmail returns the first email address in the text, lowercased,
// or "" if none is found.
func ExtractEmail(text string) string {
	return emailRE.FindString(strings.ToLower(text))
}

// IsValidEmail reports whether the value is a complete, well-formed email
// address. Used to gate model-proposed values before they reach the profile.
func IsValidEmail(email string) bool {
	return strictMail.MatchString(strings.TrimSpace(email))
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
