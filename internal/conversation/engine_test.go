package conversation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyfitness/trainerbot/internal/booking"
	"github.com/easyfitness/trainerbot/internal/customers"
	"github.com/easyfitness/trainerbot/internal/extraction"
	"github.com/easyfitness/trainerbot/internal/llm"
	"github.com/easyfitness/trainerbot/internal/magicline"
	"github.com/easyfitness/trainerbot/pkg/logging"
)

// Friday before the requested 20.01. slot in all scenario tests.
var testNow = time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

type scriptedLLM struct {
	responses []string
	err       error
	calls     int
}

func (s *scriptedLLM) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	if s.err != nil {
		return llm.Response{}, s.err
	}
	if s.calls >= len(s.responses) {
		return llm.Response{Text: `{"reply": "Alles klar!", "profil": {}}`}, nil
	}
	text := s.responses[s.calls]
	s.calls++
	return llm.Response{Text: text}, nil
}

// providerStub fakes the scheduling provider and records which endpoints
// were hit.
type providerStub struct {
	mu    sync.Mutex
	calls []string

	slotsBody      string
	validateStatus int // status for /appointments/bookable/validate, 0 = 200
}

func (p *providerStub) record(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, path)
}

func (p *providerStub) called(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.calls {
		if strings.Contains(c, path) {
			return true
		}
	}
	return false
}

func (p *providerStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.record(r.URL.Path)
		switch {
		case strings.Contains(r.URL.Path, "/slots"):
			w.Write([]byte(p.slotsBody))
		case r.URL.Path == "/appointments/bookable/validate":
			if p.validateStatus != 0 {
				w.WriteHeader(p.validateStatus)
				return
			}
			w.Write([]byte(`{"validationStatus":"AVAILABLE"}`))
		case r.URL.Path == "/appointments/booking/book":
			w.Write([]byte(`{"bookingId": 9001}`))
		case r.URL.Path == "/trial-offers/lead/validate":
			w.Write([]byte(`{}`))
		case r.URL.Path == "/trial-offers/lead/create":
			w.Write([]byte(`{"leadCustomerId": 777}`))
		case r.URL.Path == "/trial-offers/appointments/booking/validate":
			w.Write([]byte(`{"validationStatus":"AVAILABLE"}`))
		case r.URL.Path == "/trial-offers/appointments/booking/book":
			w.Write([]byte(`{"bookingId": 4242}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestEngine(t *testing.T, chat *scriptedLLM, provider *providerStub) (*Engine, *customers.MemoryStore) {
	t.Helper()
	logger := logging.New("error")

	srv := httptest.NewServer(provider.handler())
	t.Cleanup(srv.Close)
	api := magicline.NewClient(magicline.Config{
		BaseURL:            srv.URL,
		APIKey:             "test-key",
		BookableID:         42,
		TrialOfferConfigID: 7,
	}, logger)

	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	chatLayer := NewChat(chat, Studio{Name: "easyfitness EMS"}, logger)
	chatLayer.now = func() time.Time { return testNow }

	store := customers.NewMemoryStore()
	engine := NewEngine(Deps{
		Store:    store,
		Chat:     chatLayer,
		Rules:    extraction.RuleSource{},
		Booker:   booking.NewEngine(api, 30, logger),
		Location: loc,
		Logger:   logger,
	})
	engine.now = func() time.Time { return testNow }
	return engine, store
}

func strPtr(s string) *string { return &s }

func seedLead(t *testing.T, store customers.Store, phone string) {
	t.Helper()
	status := customers.StatusNameKnown
	err := store.Apply(context.Background(), phone, customers.Update{
		FirstName: strPtr("Max"),
		LastName:  strPtr("Mustermann"),
		Email:     strPtr("max@test.de"),
		Status:    &status,
	})
	require.NoError(t, err)
}

func TestHappyPathNewLead(t *testing.T) {
	provider := &providerStub{
		slotsBody: `[{"startDateTime":"2025-01-20T14:00:00+01:00"}]`,
	}
	chat := &scriptedLLM{responses: []string{
		`{"reply": "Hallo Max! 👋 Wie kann ich dir helfen?", "profil": {"vorname": "Max", "nachname": "Mustermann"}}`,
		`{"reply": "Super, ich buche das für dich!", "profil": {"datum": "2025-01-20", "uhrzeit": "14:00", "email": "max@test.de"}}`,
	}}
	engine, store := newTestEngine(t, chat, provider)
	ctx := context.Background()

	// First message: name only.
	reply, err := engine.HandleMessage(ctx, "+49170", "Ich bin Max Mustermann")
	require.NoError(t, err)
	assert.Equal(t, "Hallo Max! 👋 Wie kann ich dir helfen?", reply)

	profile, err := store.Get(ctx, "+49170")
	require.NoError(t, err)
	require.NotNil(t, profile.FirstName)
	assert.Equal(t, "Max", *profile.FirstName)
	require.NotNil(t, profile.LastName)
	assert.Equal(t, "Mustermann", *profile.LastName)
	assert.Equal(t, customers.StatusNameKnown, profile.Status)

	// Second message completes the booking data; the draft reply is replaced
	// by the provider outcome.
	reply, err = engine.HandleMessage(ctx, "+49170", "Probetraining am 20.01. um 14 Uhr, email max@test.de")
	require.NoError(t, err)
	assert.Equal(t, "✅ Termin gebucht! Bestätigung per E-Mail unterwegs.", reply)

	profile, err = store.Get(ctx, "+49170")
	require.NoError(t, err)
	require.NotNil(t, profile.Email)
	assert.Equal(t, "max@test.de", *profile.Email)
	require.NotNil(t, profile.LastBookingID)
	assert.Equal(t, "4242", *profile.LastBookingID)
	assert.Equal(t, customers.StatusTrialBooked, profile.Status)
	assert.Nil(t, profile.RequestedDate)
	assert.Nil(t, profile.RequestedTime)

	assert.True(t, provider.called("/trial-offers/lead/create"))

	history, err := store.History(ctx, "+49170", 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestSlotConflictSuggestsAlternativesWithoutLead(t *testing.T) {
	provider := &providerStub{
		slotsBody: `[
			{"startDateTime":"2025-01-20T09:00:00+01:00"},
			{"startDateTime":"2025-01-20T10:00:00+01:00"},
			{"startDateTime":"2025-01-20T11:00:00+01:00"},
			{"startDateTime":"2025-01-20T14:00:00+01:00"},
			{"startDateTime":"2025-01-20T15:00:00+01:00"},
			{"startDateTime":"2025-01-20T16:00:00+01:00"}
		]`,
	}
	chat := &scriptedLLM{responses: []string{
		`{"reply": "Alles klar, ich schaue nach!", "profil": {}}`,
	}}
	engine, store := newTestEngine(t, chat, provider)
	ctx := context.Background()
	seedLead(t, store, "+49170")

	reply, err := engine.HandleMessage(ctx, "+49170", "Probetraining am 20.01. um 12 Uhr")
	require.NoError(t, err)
	assert.Equal(t, "❌ Diese Zeit ist leider belegt. Verfügbar wäre: 11:00 Uhr, 14:00 Uhr oder 09:00 Uhr.", reply)

	assert.False(t, provider.called("/trial-offers/lead/create"))
	assert.False(t, provider.called("/trial-offers/lead/validate"))

	// The request survives the failed attempt so the customer can just send
	// a new time.
	profile, err := store.Get(ctx, "+49170")
	require.NoError(t, err)
	require.NotNil(t, profile.RequestedDate)
	assert.Equal(t, "2025-01-20", *profile.RequestedDate)
}

func TestExistingCustomerServerError(t *testing.T) {
	provider := &providerStub{validateStatus: http.StatusInternalServerError}
	chat := &scriptedLLM{responses: []string{
		`{"reply": "Gerne, ich trage dich ein!", "profil": {}}`,
	}}
	engine, store := newTestEngine(t, chat, provider)
	ctx := context.Background()

	customerID := int64(123)
	err := store.Apply(ctx, "+49170", customers.Update{ExternalCustomerID: &customerID})
	require.NoError(t, err)

	reply, err := engine.HandleMessage(ctx, "+49170", "Termin am 20.01. um 14 Uhr bitte")
	require.NoError(t, err)
	assert.Equal(t, "❌ Technisches Problem beim Buchungssystem. Bitte versuche es in ein paar Minuten erneut.", reply)

	assert.True(t, provider.called("/appointments/bookable/validate"))
	assert.False(t, provider.called("/trial-offers/lead/create"))
}

func TestAutoReadyBooksWithoutTriggerWord(t *testing.T) {
	provider := &providerStub{
		slotsBody: `[{"startDateTime":"2025-01-20T14:00:00+01:00"}]`,
	}
	chat := &scriptedLLM{responses: []string{
		`{"reply": "Top, dann bis Montag!", "profil": {}}`,
	}}
	engine, store := newTestEngine(t, chat, provider)
	ctx := context.Background()

	seedLead(t, store, "+49170")
	err := store.Apply(ctx, "+49170", customers.Update{
		RequestedDate: strPtr("2025-01-20"),
		RequestedTime: strPtr("14:00"),
	})
	require.NoError(t, err)

	// No booking keyword, no date, no time: the complete profile alone
	// triggers the attempt.
	reply, err := engine.HandleMessage(ctx, "+49170", "Ja, gerne!")
	require.NoError(t, err)
	assert.Equal(t, "✅ Termin gebucht! Bestätigung per E-Mail unterwegs.", reply)
}

func TestMissingTimeAsksForTime(t *testing.T) {
	provider := &providerStub{}
	chat := &scriptedLLM{responses: []string{
		`{"reply": "Der 20.01. passt super!", "profil": {}}`,
	}}
	engine, store := newTestEngine(t, chat, provider)
	ctx := context.Background()
	seedLead(t, store, "+49170")

	reply, err := engine.HandleMessage(ctx, "+49170", "Probetraining am 20.01.")
	require.NoError(t, err)
	assert.Contains(t, reply, "Um welche Uhrzeit möchtest du am 20.01.2025 vorbeikommen? 🕐")
	assert.Empty(t, provider.calls)
}

func TestMissingDateAsksForDate(t *testing.T) {
	provider := &providerStub{}
	chat := &scriptedLLM{responses: []string{
		`{"reply": "14 Uhr klingt gut!", "profil": {}}`,
	}}
	engine, store := newTestEngine(t, chat, provider)
	ctx := context.Background()
	seedLead(t, store, "+49170")

	reply, err := engine.HandleMessage(ctx, "+49170", "Ich möchte ein Probetraining um 14:00")
	require.NoError(t, err)
	assert.Contains(t, reply, "An welchem Tag möchtest du um 14:00 Uhr vorbeikommen? 📅")
	assert.Empty(t, provider.calls)
}

func TestMissingIdentityCombinedPrompt(t *testing.T) {
	provider := &providerStub{}
	chat := &scriptedLLM{responses: []string{
		`{"reply": "Das machen wir!", "profil": {"datum": "2025-01-20", "uhrzeit": "14:00"}}`,
	}}
	engine, _ := newTestEngine(t, chat, provider)

	reply, err := engine.HandleMessage(context.Background(), "+49170", "Probetraining am 20.01. um 14 Uhr")
	require.NoError(t, err)
	assert.Contains(t, reply, "Um deinen Termin zu buchen, brauche ich noch: Vorname, Nachname, E-Mail-Adresse. Kannst du mir diese Infos geben? 📝")
	assert.Empty(t, provider.calls)
}

func TestHallucinatedDateNeverBooks(t *testing.T) {
	provider := &providerStub{}
	// The model invents a date for a message that contains none.
	chat := &scriptedLLM{responses: []string{
		`{"reply": "Ich trage dich für nächste Woche ein!", "profil": {"datum": "2025-01-22", "uhrzeit": "14:00"}}`,
	}}
	engine, store := newTestEngine(t, chat, provider)
	ctx := context.Background()
	seedLead(t, store, "+49170")

	_, err := engine.HandleMessage(ctx, "+49170", "Ich will einen Termin machen")
	require.NoError(t, err)

	profile, err := store.Get(ctx, "+49170")
	require.NoError(t, err)
	assert.Nil(t, profile.RequestedDate)
	assert.Empty(t, provider.calls)
}

func TestLLMFailureFallsBackGracefully(t *testing.T) {
	provider := &providerStub{}
	chat := &scriptedLLM{err: errors.New("model unavailable")}
	engine, store := newTestEngine(t, chat, provider)
	ctx := context.Background()

	reply, err := engine.HandleMessage(ctx, "+49170", "Hallo!")
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, reply)

	history, err := store.History(ctx, "+49170", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, fallbackReply, history[1].Content)
}

func TestQualificationFieldsStored(t *testing.T) {
	provider := &providerStub{}
	chat := &scriptedLLM{responses: []string{
		`{"reply": "Abnehmen ist ein super Ziel! 💪 Wie oft möchtest du trainieren?", "profil": {"fitness_ziel": "Abnehmen"}}`,
	}}
	engine, store := newTestEngine(t, chat, provider)
	ctx := context.Background()

	_, err := engine.HandleMessage(ctx, "+49170", "Ich möchte abnehmen")
	require.NoError(t, err)

	profile, err := store.Get(ctx, "+49170")
	require.NoError(t, err)
	require.NotNil(t, profile.FitnessGoal)
	assert.Equal(t, "Abnehmen", *profile.FitnessGoal)
}
