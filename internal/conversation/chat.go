// Package conversation drives one WhatsApp turn end to end: language-model
// reply generation, structured extraction, profile updates and the booking
// decision.
package conversation

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/easyfitness/trainerbot/internal/customers"
	"github.com/easyfitness/trainerbot/internal/extraction"
	"github.com/easyfitness/trainerbot/internal/llm"
	"github.com/easyfitness/trainerbot/pkg/logging"
)

//go:embed prompt.txt
var promptTemplate string

var weekdays = map[time.Weekday]string{
	time.Monday:    "Montag",
	time.Tuesday:   "Dienstag",
	time.Wednesday: "Mittwoch",
	time.Thursday:  "Donnerstag",
	time.Friday:    "Freitag",
	time.Saturday:  "Samstag",
	time.Sunday:    "Sonntag",
}

const (
	nameUnknown   = "noch unbekannt"
	noProfileData = "keine Daten"
)

// Studio is the static studio information interpolated into the system
// prompt.
type Studio struct {
	Name    string
	Address string
	Hours   string
	Offer   string
}

// Chat produces the bot's free-text draft reply and the model's own profile
// extraction for one customer message.
type Chat struct {
	client llm.Client
	studio Studio
	logger *logging.Logger
	now    func() time.Time
}

// NewChat creates the chat layer on top of an LLM client.
func NewChat(client llm.Client, studio Studio, logger *logging.Logger) *Chat {
	return &Chat{
		client: client,
		studio: studio,
		logger: logger.Component("chat"),
		now:    time.Now,
	}
}

// Generate asks the model for a reply to userMsg given the conversation so
// far, and parses the structured profil block out of the response.
func (c *Chat) Generate(ctx context.Context, profile customers.Profile, history []customers.Turn, userMsg string) (string, map[string]any, error) {
	messages := make([]llm.ChatMessage, 0, len(history)+1)
	for _, turn := range history {
		role := llm.ChatRoleUser
		if turn.Role == "assistant" {
			role = llm.ChatRoleAssistant
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: llm.ChatRoleUser, Content: userMsg})

	resp, err := c.client.Complete(ctx, llm.Request{
		System:      []string{c.systemPrompt(profile)},
		Messages:    messages,
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		return "", nil, fmt.Errorf("conversation: reply generation failed: %w", err)
	}

	reply, profil := parseResponse(resp.Text)
	return reply, profil, nil
}

func (c *Chat) systemPrompt(profile customers.Profile) string {
	name := nameUnknown
	if profile.FirstName != nil {
		name = *profile.FirstName
	}
	now := c.now()

	replacer := strings.NewReplacer(
		"{{WOCHENTAG}}", weekdays[now.Weekday()],
		"{{DATUM}}", now.Format("02.01.2006"),
		"{{NAME}}", name,
		"{{STATUS}}", profile.Status,
		"{{PROFIL}}", profileJSON(profile),
		"{{STUDIO_NAME}}", c.studio.Name,
		"{{STUDIO_ADDRESS}}", c.studio.Address,
		"{{STUDIO_HOURS}}", c.studio.Hours,
		"{{STUDIO_OFFER}}", c.studio.Offer,
	)
	return replacer.Replace(promptTemplate)
}

// profileJSON renders the filled profile fields for the prompt. Unknown
// fields are omitted entirely rather than shown as null.
func profileJSON(p customers.Profile) string {
	filled := map[string]string{}
	set := func(key string, value *string) {
		if value != nil && *value != "" {
			filled[key] = *value
		}
	}
	set("vorname", p.FirstName)
	set("nachname", p.LastName)
	set("email", p.Email)
	set("datum", p.RequestedDate)
	set("uhrzeit", p.RequestedTime)
	set("fitness_ziel", p.FitnessGoal)
	set("fitness_level", p.FitnessLevel)
	set("trainingsfrequenz", p.TrainingFrequency)

	if len(filled) == 0 {
		return noProfileData
	}
	data, err := json.Marshal(filled)
	if err != nil {
		return noProfileData
	}
	return string(data)
}

// parseResponse splits a model response into the reply text and the profil
// map. A response without parseable JSON is used verbatim as the reply.
func parseResponse(raw string) (string, map[string]any) {
	data, ok := extraction.ParseLooseJSON(raw)
	if !ok {
		return raw, nil
	}

	reply, _ := data["reply"].(string)
	if reply == "" {
		reply = raw
	}

	profil := map[string]any{}
	if m, ok := data["profil"].(map[string]any); ok {
		for key, value := range m {
			if value != nil {
				profil[key] = value
			}
		}
	}
	return reply, profil
}
