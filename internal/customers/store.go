package customers

import "context"

// History growth is bounded: once more than maxHistoryTurns entries
// accumulate, only the most recent keepHistoryTurns are kept.
const (
	maxHistoryTurns  = 100
	keepHistoryTurns = 80
)

// Store persists profiles and conversation history per phone number.
// Implementations serialize read-modify-write per customer key; concurrent
// updates for the same customer resolve last-writer-wins.
type Store interface {
	// Get returns the profile for the phone number, creating a default
	// record on first contact.
	Get(ctx context.Context, phone string) (Profile, error)
	// Apply writes the non-nil fields of the update onto the profile.
	Apply(ctx context.Context, phone string, update Update) error
	// AppendHistory records one (customer message, bot reply) exchange and
	// trims the history once it exceeds the cap.
	AppendHistory(ctx context.Context, phone, userMsg, botReply string) error
	// History returns the most recent turns, newest last, at most limit.
	History(ctx context.Context, phone string, limit int) ([]Turn, error)
}
