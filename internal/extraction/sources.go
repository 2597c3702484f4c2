package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/easyfitness/trainerbot/internal/llm"
	"github.com/easyfitness/trainerbot/internal/textparse"
	"github.com/easyfitness/trainerbot/pkg/logging"
)

// Source is one named extraction strategy. Sources never fail: when a
// source cannot contribute, it returns an empty Result.
type Source interface {
	Name() string
	Extract(ctx context.Context, text string, now time.Time) Result
}

// RuleSource extracts booking data with the deterministic German pattern
// rules. It is the trusted source for dates.
type RuleSource struct{}

func (RuleSource) Name() string { return "rules" }

func (RuleSource) Extract(_ context.Context, text string, now time.Time) Result {
	first, last := textparse.ExtractFullName(text)
	if first == "" && last == "" {
		first = textparse.ExtractName(text)
	}
	return Result{
		FirstName: first,
		LastName:  last,
		Email:     textparse.ExtractEmail(text),
		Date:      textparse.ExtractDateOnly(text, now),
		Time:      textparse.ExtractTimeOnly(text),
	}
}

const extractionSystemPrompt = "Du bist ein Daten-Extraktions-Assistent. Antworte nur mit JSON."

const extractionPromptTemplate = `Extrahiere aus folgendem Text die Kundendaten.

Heute ist %s.

Text: "%s"

Antworte NUR mit JSON, nichts anderes:
{"vorname": "...", "nachname": "...", "email": "...", "datum": "YYYY-MM-DD", "uhrzeit": "HH:MM"}

Regeln:
- Bei "Mein Name ist X Y" oder "Ich bin X Y" gilt vorname=X, nachname=Y
- Beispiel: "Mein Name ist Michael Makelko" ergibt "vorname": "Michael", "nachname": "Makelko"
- Beispiel: "Ich bin Anna Schmidt" ergibt "vorname": "Anna", "nachname": "Schmidt"
- Email = E-Mail-Adresse
- Datum im Format YYYY-MM-DD (z.B. "30.12" zu "2025-12-30")
- Uhrzeit im Format HH:MM (z.B. "14 Uhr" zu "14:00")
- Setze null NUR wenn die Info wirklich NICHT im Text steht`

// ModelSource extracts booking data by asking the language model for a JSON
// reply. Its output is candidates only; the reconciler validates every field
// before anything reaches the profile.
type ModelSource struct {
	client llm.Client
	logger *logging.Logger
}

// NewModelSource creates a model-backed extraction source.
func NewModelSource(client llm.Client, logger *logging.Logger) *ModelSource {
	if logger == nil {
		logger = logging.Default()
	}
	return &ModelSource{client: client, logger: logger.Component("extraction")}
}

func (s *ModelSource) Name() string { return "model" }

func (s *ModelSource) Extract(ctx context.Context, text string, now time.Time) Result {
	prompt := fmt.Sprintf(extractionPromptTemplate, now.Format("02.01.2006"), text)

	resp, err := s.client.Complete(ctx, llm.Request{
		System: []string{extractionSystemPrompt},
		Messages: []llm.ChatMessage{
			{Role: llm.ChatRoleUser, Content: prompt},
		},
		MaxTokens:   256,
		Temperature: 0.1,
	})
	if err != nil {
		s.logger.Warn("model extraction failed", "error", err)
		return Result{}
	}

	return parseResult(resp.Text)
}
