package customers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the durable profile backend. The profile and history are
// stored as JSONB documents keyed by phone number.
type PostgresStore struct {
	db querier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("customers: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db querier) *PostgresStore {
	if db == nil {
		panic("customers: querier required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, phone string) (Profile, error) {
	query := `SELECT profile FROM customers WHERE phone = $1`
	var data []byte
	err := s.db.QueryRow(ctx, query, phone).Scan(&data)
	if err == pgx.ErrNoRows {
		profile := NewProfile()
		profile.LastContact = time.Now()
		encoded, err := json.Marshal(profile)
		if err != nil {
			return Profile{}, fmt.Errorf("customers: failed to marshal profile: %w", err)
		}
		insert := `
			INSERT INTO customers (phone, profile, history)
			VALUES ($1, $2, '[]')
			ON CONFLICT (phone) DO NOTHING
		`
		if _, err := s.db.Exec(ctx, insert, phone, encoded); err != nil {
			return Profile{}, fmt.Errorf("customers: failed to create profile: %w", err)
		}
		return profile, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("customers: failed to load profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("customers: failed to decode profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) Apply(ctx context.Context, phone string, update Update) error {
	if update.IsZero() {
		return nil
	}

	profile, err := s.Get(ctx, phone)
	if err != nil {
		return err
	}
	profile.apply(update)

	encoded, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("customers: failed to marshal profile: %w", err)
	}
	query := `UPDATE customers SET profile = $2, updated_at = now() WHERE phone = $1`
	if _, err := s.db.Exec(ctx, query, phone, encoded); err != nil {
		return fmt.Errorf("customers: failed to update profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendHistory(ctx context.Context, phone, userMsg, botReply string) error {
	profile, err := s.Get(ctx, phone)
	if err != nil {
		return err
	}

	history, err := s.loadHistory(ctx, phone)
	if err != nil {
		return err
	}
	history = append(history,
		Turn{Role: "user", Content: userMsg},
		Turn{Role: "assistant", Content: botReply},
	)
	if len(history) > maxHistoryTurns {
		history = history[len(history)-keepHistoryTurns:]
	}

	profile.LastContact = time.Now()
	encodedProfile, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("customers: failed to marshal profile: %w", err)
	}
	encodedHistory, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("customers: failed to marshal history: %w", err)
	}

	query := `UPDATE customers SET profile = $2, history = $3, updated_at = now() WHERE phone = $1`
	if _, err := s.db.Exec(ctx, query, phone, encodedProfile, encodedHistory); err != nil {
		return fmt.Errorf("customers: failed to update history: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, phone string, limit int) ([]Turn, error) {
	history, err := s.loadHistory(ctx, phone)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (s *PostgresStore) loadHistory(ctx context.Context, phone string) ([]Turn, error) {
	query := `SELECT history FROM customers WHERE phone = $1`
	var data []byte
	err := s.db.QueryRow(ctx, query, phone).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("customers: failed to load history: %w", err)
	}

	var history []Turn
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("customers: failed to decode history: %w", err)
	}
	return history, nil
}
