package textparse

import "strings"

// bookingKeywords is the explicit intent vocabulary. The bare word "kommen"
// is deliberately absent: it matched refusals like "kann nicht kommen", so
// only the compound "vorbeikommen" counts.
var bookingKeywords = []string{
	"probetraining", "probentraining", "probe training",
	"termin", "buchen", "buchung", "gebucht",
	"anmelden", "anmeldung", "reservieren", "reservierung",
	"training machen", "training buchen",
	"vorbeikommen", "vorbei",
	"ausprobieren", "testen", "probieren",
	"einbuchen", "eintragen",
}

// IntentContext carries what the conversation already knows about the
// customer, so a booking can be completed across several messages without
// repeating trigger words each time.
type IntentContext struct {
	// HasBookingData is true once name and email are on file.
	HasBookingData bool
	// HasPartialDatetime is true when a requested date or time is stored.
	HasPartialDatetime bool
}

// ExtractBookingIntent reports whether the customer wants to book. A keyword
// from the vocabulary combined with a date or time pattern in message+reply
// signals intent; independently, a customer already mid-flow (per ctx) who
// supplies a date or time is treated as continuing the booking.
func ExtractBookingIntent(text, reply string, ctx IntentContext) bool {
	combined := strings.ToLower(text + reply)

	hasKeyword := false
	for _, kw := range bookingKeywords {
		if strings.Contains(combined, kw) {
			hasKeyword = true
			break
		}
	}

	hasDate := fullDateRE.MatchString(combined) ||
		shortDateDotRE.MatchString(combined) ||
		prepDateRE.MatchString(combined) ||
		cueDateRE.MatchString(combined) ||
		weekdayRE.MatchString(combined) ||
		relDateRE.MatchString(combined)
	hasTime := clockRE.MatchString(combined) || uhrRE.MatchString(combined)

	if hasKeyword && (hasDate || hasTime) {
		return true
	}

	if (ctx.HasBookingData || ctx.HasPartialDatetime) && (hasDate || hasTime) {
		return true
	}

	return false
}
