package conversation

import (
	"fmt"
	"strings"

	"github.com/easyfitness/trainerbot/internal/customers"
	"github.com/easyfitness/trainerbot/internal/extraction"
	"github.com/easyfitness/trainerbot/internal/textparse"
)

// Prompts asked by the resolver when booking data is still missing.
func missingTimePrompt(dateGerman string) string {
	return fmt.Sprintf("Um welche Uhrzeit möchtest du am %s vorbeikommen? 🕐", dateGerman)
}

func missingDatePrompt(clock string) string {
	return fmt.Sprintf("An welchem Tag möchtest du um %s Uhr vorbeikommen? 📅", clock)
}

func missingBookingDataPrompt(fields []string) string {
	return fmt.Sprintf("Um deinen Termin zu buchen, brauche ich noch: %s. Kannst du mir diese Infos geben? 📝", strings.Join(fields, ", "))
}

// resultFromProfil converts the chat model's profil block into an extraction
// candidate. Values go through the reducer like any other model output, so
// the usual validation and the date hallucination guard apply.
func resultFromProfil(profil map[string]any) extraction.Result {
	get := func(key string) string {
		s, _ := profil[key].(string)
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "null", "none":
			return ""
		}
		return s
	}
	return extraction.Result{
		FirstName: get("vorname"),
		LastName:  get("nachname"),
		Email:     get("email"),
		Date:      get("datum"),
		Time:      get("uhrzeit"),
	}
}

// qualificationUpdate lifts the soft qualification fields out of the chat
// model's profil block. These inform future prompts only and skip the
// booking-data validation.
func qualificationUpdate(profil map[string]any) customers.Update {
	var u customers.Update
	if v, ok := profil["fitness_ziel"].(string); ok && strings.TrimSpace(v) != "" {
		v = strings.TrimSpace(v)
		u.FitnessGoal = &v
	}
	if v, ok := profil["fitness_level"].(string); ok && strings.TrimSpace(v) != "" {
		v = strings.TrimSpace(v)
		u.FitnessLevel = &v
	}
	if v, ok := profil["trainingsfrequenz"].(string); ok && strings.TrimSpace(v) != "" {
		v = strings.TrimSpace(v)
		u.TrainingFrequency = &v
	}
	return u
}

// ensureAsksForMissingData appends the next missing-data question when the
// model's reply does not ask one itself, so the conversation keeps moving
// toward a bookable state. A reply that already contains a question is left
// alone, and brand-new customers without a first name are not pestered.
func ensureAsksForMissingData(reply string, profile customers.Profile) string {
	if strings.Contains(reply, "?") {
		return reply
	}

	hasDate := profile.RequestedDate != nil
	hasTime := profile.RequestedTime != nil

	if profile.IsMember() {
		switch {
		case !hasDate:
			return reply + " Wann möchtest du vorbeikommen? 📅"
		case !hasTime:
			return reply + " Um welche Uhrzeit am " + textparse.FormatDateGerman(*profile.RequestedDate) + "? 🕐"
		}
		return reply
	}

	switch {
	case profile.FirstName == nil:
		return reply
	case profile.LastName == nil:
		return reply + " Wie heißt du mit Nachnamen?"
	case profile.Email == nil:
		return reply + " Unter welcher E-Mail-Adresse kann ich dich erreichen? 📧"
	case !hasDate:
		return reply + " Wann möchtest du zum Probetraining vorbeikommen? 📅"
	case !hasTime:
		return reply + " Um welche Uhrzeit am " + textparse.FormatDateGerman(*profile.RequestedDate) + "? 🕐"
	}
	return reply
}
