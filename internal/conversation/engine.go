package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/easyfitness/trainerbot/internal/booking"
	"github.com/easyfitness/trainerbot/internal/customers"
	"github.com/easyfitness/trainerbot/internal/extraction"
	"github.com/easyfitness/trainerbot/internal/textparse"
	"github.com/easyfitness/trainerbot/pkg/logging"
)

// Sent when the language model is unreachable and no reply could be drafted.
const fallbackReply = "Entschuldige, gerade ist bei mir etwas schiefgelaufen. Versuch es bitte gleich nochmal. 🙏"

// Booker runs the reservation protocol once the resolver decides to book.
type Booker interface {
	TryBook(ctx context.Context, customerID int64, startDateTime string) booking.Attempt
	TryBookTrialOffer(ctx context.Context, firstName, lastName, email, startDateTime string) booking.Attempt
}

// Deps are the collaborators the engine is built from. Model may be nil when
// no dedicated extraction model is configured; the rule source and the chat
// profil still feed the reducer then.
type Deps struct {
	Store        customers.Store
	Chat         *Chat
	Rules        extraction.Source
	Model        extraction.Source
	Booker       Booker
	Location     *time.Location
	HistoryLimit int
	Logger       *logging.Logger
}

// Engine handles one inbound customer message per call. It is the only
// public surface of the conversation layer; the transport hands it
// (phone, text) and sends back whatever reply it returns.
type Engine struct {
	store        customers.Store
	chat         *Chat
	rules        extraction.Source
	model        extraction.Source
	booker       Booker
	loc          *time.Location
	historyLimit int
	logger       *logging.Logger
	now          func() time.Time
}

// NewEngine wires the conversation engine.
func NewEngine(d Deps) *Engine {
	limit := d.HistoryLimit
	if limit <= 0 {
		limit = 12
	}
	return &Engine{
		store:        d.Store,
		chat:         d.Chat,
		rules:        d.Rules,
		model:        d.Model,
		booker:       d.Booker,
		loc:          d.Location,
		historyLimit: limit,
		logger:       d.Logger.Component("conversation"),
		now:          time.Now,
	}
}

// HandleMessage runs one full turn: draft a reply, extract booking data,
// update the profile, book if ready, and persist the exchange. Provider
// failures surface as customer-facing messages, not as errors; an error
// return means the profile store itself failed.
func (e *Engine) HandleMessage(ctx context.Context, phone, text string) (string, error) {
	profile, err := e.store.Get(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("conversation: load profile: %w", err)
	}
	history, err := e.store.History(ctx, phone, e.historyLimit)
	if err != nil {
		return "", fmt.Errorf("conversation: load history: %w", err)
	}

	reply, profil, err := e.chat.Generate(ctx, profile, history, text)
	if err != nil {
		e.logger.Warn("reply generation failed", "phone", phone, "error", err)
		reply = fallbackReply
	}

	now := e.now()
	merged := e.extract(ctx, text, profil, now)

	update := customers.MergeExtraction(profile, merged)
	qual := qualificationUpdate(profil)
	update.FitnessGoal = qual.FitnessGoal
	update.FitnessLevel = qual.FitnessLevel
	update.TrainingFrequency = qual.TrainingFrequency
	if err := e.store.Apply(ctx, phone, update); err != nil {
		return "", fmt.Errorf("conversation: update profile: %w", err)
	}
	profile, err = e.store.Get(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("conversation: reload profile: %w", err)
	}

	reply, booked := e.resolveBooking(ctx, phone, text, reply, profile)
	if !booked {
		reply = ensureAsksForMissingData(reply, profile)
	}

	if err := e.store.AppendHistory(ctx, phone, text, reply); err != nil {
		return "", fmt.Errorf("conversation: save history: %w", err)
	}
	return reply, nil
}

// extract runs the deterministic and model extraction passes and reconciles
// them. The chat model's own profil block counts as model output: it fills
// gaps the dedicated extraction call left, then everything model-sourced
// passes the reducer's validation once.
func (e *Engine) extract(ctx context.Context, text string, profil map[string]any, now time.Time) extraction.Result {
	rules := e.rules.Extract(ctx, text, now)

	var model extraction.Result
	if e.model != nil {
		model = e.model.Extract(ctx, text, now)
	}
	model = model.FillFrom(resultFromProfil(profil))

	return extraction.Reconcile(rules, model, text, now)
}

// resolveBooking decides whether this turn books, asks for missing data, or
// leaves the draft reply untouched. The second return value reports that a
// booking attempt happened and its outcome message replaced the draft reply:
// the model's free text may claim the opposite of what the provider did.
func (e *Engine) resolveBooking(ctx context.Context, phone, text, reply string, profile customers.Profile) (string, bool) {
	intentCtx := textparse.IntentContext{
		HasBookingData:     profile.HasIdentity(),
		HasPartialDatetime: profile.HasPartialDatetime(),
	}
	intent := textparse.ExtractBookingIntent(text, reply, intentCtx)
	ready := e.readyToBook(profile)
	if !intent && !ready {
		return reply, false
	}

	var date, clock string
	if profile.RequestedDate != nil {
		date = *profile.RequestedDate
	}
	if profile.RequestedTime != nil {
		clock = *profile.RequestedTime
	}

	switch {
	case date != "" && clock == "":
		return reply + "\n\n" + missingTimePrompt(textparse.FormatDateGerman(date)), false
	case clock != "" && date == "":
		return reply + "\n\n" + missingDatePrompt(clock), false
	case date == "" && clock == "":
		// Intent without any datetime yet; the reply fallback asks for one.
		return reply, false
	}

	if !profile.IsMember() && !profile.HasIdentity() {
		return reply + "\n\n" + missingBookingDataPrompt(profile.MissingIdentityFields()), false
	}

	start := textparse.BuildDatetimeISO(date, clock, e.now(), e.loc)

	var attempt booking.Attempt
	if profile.IsMember() {
		attempt = e.booker.TryBook(ctx, *profile.ExternalCustomerID, start)
	} else {
		attempt = e.booker.TryBookTrialOffer(ctx, *profile.FirstName, *profile.LastName, *profile.Email, start)
	}

	if attempt.Success {
		status := customers.StatusTrialBooked
		update := customers.Update{
			LastBookingID:  &attempt.BookingID,
			Status:         &status,
			ClearRequested: true,
		}
		if err := e.store.Apply(ctx, phone, update); err != nil {
			e.logger.Error("failed to record booking", "phone", phone, "error", err)
		}
		e.logger.Info("booking completed", "phone", phone, "booking_id", attempt.BookingID)
		return "✅ " + attempt.Message, true
	}

	e.logger.Info("booking attempt failed", "phone", phone, "message", attempt.Message)
	return "❌ " + attempt.Message, true
}

// readyToBook reports whether the profile alone already justifies a booking
// attempt, so a customer completing the last missing field does not have to
// repeat a trigger word.
func (e *Engine) readyToBook(p customers.Profile) bool {
	if p.RequestedDate == nil || p.RequestedTime == nil {
		return false
	}
	return p.IsMember() || p.HasIdentity()
}
