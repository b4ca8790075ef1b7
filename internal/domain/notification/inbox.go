package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	inboxKeyPrefix     = "notifications:user:"
	defaultInboxLimit  = 50
	defaultInboxTTL    = 30 * 24 * time.Hour
	maxInboxTxAttempts = 5
)

// ErrNotificationNotFound is returned when marking an unknown entry
var ErrNotificationNotFound = apperrors.NotFound("notification not found")

// Entry is one in-app notification. The inbox is a convenience copy; order
// history in the database stays authoritative.
type Entry struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	IsRead      bool      `json:"isRead"`
}

// Inbox keeps the latest notifications per user in a capped Redis list
type Inbox struct {
	client *redis.Client
	limit  int64
	ttl    time.Duration
}

// NewInbox creates an inbox. Zero limit or ttl fall back to 50 entries and 30 days.
func NewInbox(client *redis.Client, limit int64, ttl time.Duration) *Inbox {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if ttl <= 0 {
		ttl = defaultInboxTTL
	}
	return &Inbox{client: client, limit: limit, ttl: ttl}
}

func inboxKey(userID uint) string {
	return fmt.Sprintf("%s%d", inboxKeyPrefix, userID)
}

// Push prepends an entry, trimming the list to the cap
func (i *Inbox) Push(ctx context.Context, userID uint, entry Entry) (*Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}

	key := inboxKey(userID)
	_, err = i.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, i.limit-1)
		pipe.Expire(ctx, key, i.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to push notification: %w", err)
	}
	return &entry, nil
}

// List returns the newest entries first
func (i *Inbox) List(ctx context.Context, userID uint) ([]Entry, error) {
	raw, err := i.client.LRange(ctx, inboxKey(userID), 0, i.limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return decodeEntries(raw)
}

// UnreadCount counts entries not yet read
func (i *Inbox) UnreadCount(ctx context.Context, userID uint) (int, error) {
	entries, err := i.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if !e.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead flags one entry as read
func (i *Inbox) MarkRead(ctx context.Context, userID uint, id string) error {
	key := inboxKey(userID)
	return i.update(ctx, key, func(entries []Entry) (func(redis.Pipeliner), error) {
		for idx, e := range entries {
			if e.ID != id {
				continue
			}
			if e.IsRead {
				return nil, nil
			}
			e.IsRead = true
			payload, err := json.Marshal(e)
			if err != nil {
				return nil, fmt.Errorf("failed to encode notification: %w", err)
			}
			return func(pipe redis.Pipeliner) {
				pipe.LSet(ctx, key, int64(idx), payload)
			}, nil
		}
		return nil, ErrNotificationNotFound
	})
}

// MarkAllRead flags every entry as read
func (i *Inbox) MarkAllRead(ctx context.Context, userID uint) error {
	key := inboxKey(userID)
	return i.update(ctx, key, func(entries []Entry) (func(redis.Pipeliner), error) {
		payloads := make([]interface{}, 0, len(entries))
		changed := false
		for _, e := range entries {
			if !e.IsRead {
				e.IsRead = true
				changed = true
			}
			payload, err := json.Marshal(e)
			if err != nil {
				return nil, fmt.Errorf("failed to encode notification: %w", err)
			}
			payloads = append(payloads, payload)
		}
		if !changed {
			return nil, nil
		}
		return func(pipe redis.Pipeliner) {
			pipe.Del(ctx, key)
			pipe.RPush(ctx, key, payloads...)
			pipe.Expire(ctx, key, i.ttl)
		}, nil
	})
}

type inboxMutation func(entries []Entry) (func(redis.Pipeliner), error)

// update runs an optimistic WATCH/MULTI cycle over the whole list, retrying
// when another writer touched it in between.
func (i *Inbox) update(ctx context.Context, key string, mutate inboxMutation) error {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		entries, err := decodeEntries(raw)
		if err != nil {
			return err
		}
		apply, err := mutate(entries)
		if err != nil || apply == nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			apply(pipe)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxInboxTxAttempts; attempt++ {
		err := i.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrNotificationNotFound) {
			return fmt.Errorf("failed to update notifications: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to update notifications: %w", redis.TxFailedErr)
}

func decodeEntries(raw []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
