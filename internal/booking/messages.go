package booking

import (
	"fmt"
	"strings"
)

// Customer-facing booking outcome messages.
const (
	msgSuccess            = "Termin gebucht! Bestätigung per E-Mail unterwegs."
	msgSlotUnavailable    = "Slot nicht verfügbar - probier ein anderes Datum."
	msgGenericError       = "Leider nicht verfügbar - wähle ein anderes Datum."
	msgValidationFailed   = "Deine Daten konnten nicht validiert werden. Bitte überprüfe Name und E-Mail."
	msgLeadCreationFailed = "Lead konnte nicht erstellt werden. Bitte versuche es erneut."
	msgServerError        = "Technisches Problem beim Buchungssystem. Bitte versuche es in ein paar Minuten erneut."
	msgNetworkError       = "Verbindungsproblem zum Buchungssystem. Bitte versuche es erneut."
)

// alternativesMessage formats the "slot taken" reply with up to three
// suggested times.
func alternativesMessage(alternatives []string) string {
	if len(alternatives) == 0 {
		return msgSlotUnavailable
	}

	formatted := make([]string, len(alternatives))
	for i, t := range alternatives {
		formatted[i] = t + " Uhr"
	}

	if len(formatted) == 1 {
		return fmt.Sprintf("Diese Zeit ist leider belegt. Wie wäre es um %s?", formatted[0])
	}
	last := formatted[len(formatted)-1]
	rest := strings.Join(formatted[:len(formatted)-1], ", ")
	return fmt.Sprintf("Diese Zeit ist leider belegt. Verfügbar wäre: %s oder %s.", rest, last)
}
