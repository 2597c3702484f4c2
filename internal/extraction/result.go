// Package extraction turns a customer message into structured booking data.
// Two independent sources produce candidates: deterministic pattern rules
// and a language-model call. A single reducer reconciles them per field,
// distrusting the model wherever it has been seen to invent values.
package extraction

import (
	"encoding/json"
	"strings"
)

// Result holds the candidate fields one extraction source found in a
// message. Empty string means the source found nothing for that field.
type Result struct {
	FirstName string
	LastName  string
	Email     string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM
}

// Empty reports whether the result carries no data at all.
func (r Result) Empty() bool {
	return r == Result{}
}

// FillFrom copies other's values into fields r left empty. Used to combine
// two model-sourced candidates before the reducer runs, so every model value
// passes the same validation exactly once.
func (r Result) FillFrom(other Result) Result {
	if r.FirstName == "" {
		r.FirstName = other.FirstName
	}
	if r.LastName == "" {
		r.LastName = other.LastName
	}
	if r.Email == "" {
		r.Email = other.Email
	}
	if r.Date == "" {
		r.Date = other.Date
	}
	if r.Time == "" {
		r.Time = other.Time
	}
	return r
}

// ParseLooseJSON extracts the first-"{" to last-"}" span of text and tries
// to decode it as a JSON object: strict JSON first, then a relaxed pass
// tolerating single-quoted Python-literal style (None/True/False). Returns
// false instead of an error on any malformed input.
func ParseLooseJSON(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	raw := text[start : end+1]

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		return data, true
	}

	relaxed := strings.NewReplacer(
		"'", `"`,
		"None", "null",
		"True", "true",
		"False", "false",
	).Replace(raw)
	if err := json.Unmarshal([]byte(relaxed), &data); err == nil {
		return data, true
	}

	return nil, false
}

// parseResult decodes a model extraction reply into a Result. String values
// of "null", "none" and "" count as absent. Unparseable replies yield an
// empty Result, never an error.
func parseResult(text string) Result {
	data, ok := ParseLooseJSON(text)
	if !ok {
		return Result{}
	}

	get := func(key string) string {
		v, ok := data[key]
		if !ok {
			return ""
		}
		s, ok := v.(string)
		if !ok {
			return ""
		}
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "", "null", "none":
			return ""
		}
		return s
	}

	return Result{
		FirstName: get("vorname"),
		LastName:  get("nachname"),
		Email:     get("email"),
		Date:      get("datum"),
		Time:      get("uhrzeit"),
	}
}
