package customers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore is the primary profile backend. Profiles live as JSON values,
// history as a Redis list trimmed server-side. No TTL: customer records are
// durable.
type RedisStore struct {
	client *redis.Client
	tracer trace.Tracer
}

// NewRedisStore creates a Redis-backed customer store.
func NewRedisStore(client *redis.Client, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("customers: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("trainerbot.internal.customers")
	}
	return &RedisStore{client: client, tracer: tracer}
}

func profileKey(phone string) string {
	return fmt.Sprintf("customer:%s:profile", phone)
}

func historyKey(phone string) string {
	return fmt.Sprintf("customer:%s:history", phone)
}

func (s *RedisStore) Get(ctx context.Context, phone string) (Profile, error) {
	ctx, span := s.tracer.Start(ctx, "customers.get_profile")
	defer span.End()

	data, err := s.client.Get(ctx, profileKey(phone)).Bytes()
	if err == redis.Nil {
		profile := NewProfile()
		profile.LastContact = time.Now()
		if err := s.save(ctx, phone, profile); err != nil {
			span.RecordError(err)
			return Profile{}, err
		}
		return profile, nil
	}
	if err != nil {
		span.RecordError(err)
		return Profile{}, fmt.Errorf("customers: failed to load profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		span.RecordError(err)
		return Profile{}, fmt.Errorf("customers: failed to decode profile: %w", err)
	}
	return profile, nil
}

func (s *RedisStore) Apply(ctx context.Context, phone string, update Update) error {
	ctx, span := s.tracer.Start(ctx, "customers.apply_update")
	defer span.End()

	if update.IsZero() {
		return nil
	}

	profile, err := s.Get(ctx, phone)
	if err != nil {
		span.RecordError(err)
		return err
	}
	profile.apply(update)
	if err := s.save(ctx, phone, profile); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *RedisStore) AppendHistory(ctx context.Context, phone, userMsg, botReply string) error {
	ctx, span := s.tracer.Start(ctx, "customers.append_history")
	defer span.End()

	userTurn, err := json.Marshal(Turn{Role: "user", Content: userMsg})
	if err != nil {
		return fmt.Errorf("customers: failed to marshal turn: %w", err)
	}
	botTurn, err := json.Marshal(Turn{Role: "assistant", Content: botReply})
	if err != nil {
		return fmt.Errorf("customers: failed to marshal turn: %w", err)
	}

	key := historyKey(phone)
	if err := s.client.RPush(ctx, key, userTurn, botTurn).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("customers: failed to append history: %w", err)
	}

	length, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("customers: failed to measure history: %w", err)
	}
	if length > maxHistoryTurns {
		if err := s.client.LTrim(ctx, key, -keepHistoryTurns, -1).Err(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("customers: failed to trim history: %w", err)
		}
	}

	profile, err := s.Get(ctx, phone)
	if err != nil {
		return err
	}
	profile.LastContact = time.Now()
	return s.save(ctx, phone, profile)
}

func (s *RedisStore) History(ctx context.Context, phone string, limit int) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "customers.load_history")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	entries, err := s.client.LRange(ctx, historyKey(phone), start, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("customers: failed to load history: %w", err)
	}

	turns := make([]Turn, 0, len(entries))
	for _, entry := range entries {
		var turn Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("customers: failed to decode history entry: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) save(ctx context.Context, phone string, profile Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("customers: failed to marshal profile: %w", err)
	}
	if err := s.client.Set(ctx, profileKey(phone), data, 0).Err(); err != nil {
		return fmt.Errorf("customers: failed to persist profile: %w", err)
	}
	return nil
}
