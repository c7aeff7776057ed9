// Package conversation persists the chat log with an idle time-to-live.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stupiduntilnot/reportchat/internal/store"
)

const (
	// DefaultTTL is how long a conversation survives without updates.
	DefaultTTL = 30 * time.Minute
	// DefaultSweepInterval is how often Sweeper re-checks the TTL.
	DefaultSweepInterval = 60 * time.Second
)

// Message is one chat entry. It is immutable once created.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	IsError   bool      `json:"isError,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with at.
func NewMessage(text string, isUser bool, at time.Time) Message {
	return Message{ID: uuid.NewString(), Text: text, IsUser: isUser, Timestamp: at}
}

// NewErrorNotice creates an assistant-side message describing a failed request.
func NewErrorNotice(text string, at time.Time) Message {
	m := NewMessage(text, false, at)
	m.IsError = true
	return m
}

type record struct {
	Messages   []Message `json:"messages"`
	LastUpdate int64     `json:"lastUpdate"`
}

// Store persists one conversation under Key.
type Store struct {
	KV  store.KV
	Key string
	TTL time.Duration
	Now func() time.Time
	Log logrus.FieldLogger
}

// NewStore creates a Store with the default TTL and wall clock.
func NewStore(kv store.KV, key string, log logrus.FieldLogger) *Store {
	return &Store{KV: kv, Key: key, TTL: DefaultTTL, Now: time.Now, Log: log}
}

// Load returns the persisted conversation in its original order. An expired
// or unreadable record is removed and reported as empty.
func (s *Store) Load(ctx context.Context) ([]Message, error) {
	raw, ok, err := s.KV.Get(ctx, s.Key)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if !ok {
		return []Message{}, nil
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.logger().WithError(err).Warn("discarding unreadable conversation")
		return []Message{}, s.Clear(ctx)
	}
	if s.expired(rec.LastUpdate) {
		s.logger().WithField("last_update", time.UnixMilli(rec.LastUpdate)).Info("conversation expired")
		return []Message{}, s.Clear(ctx)
	}
	if rec.Messages == nil {
		rec.Messages = []Message{}
	}
	return rec.Messages, nil
}

// Save replaces the persisted conversation and refreshes its last update.
func (s *Store) Save(ctx context.Context, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	data, err := json.Marshal(record{Messages: messages, LastUpdate: s.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	if err := s.KV.Set(ctx, s.Key, string(data)); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// Clear removes the persisted conversation.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.KV.Remove(ctx, s.Key); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}

// Sweep removes the persisted conversation if it has expired.
func (s *Store) Sweep(ctx context.Context) (bool, error) {
	raw, ok, err := s.KV.Get(ctx, s.Key)
	if err != nil || !ok {
		return false, err
	}
	var rec struct {
		LastUpdate int64 `json:"lastUpdate"`
	}
	if err := json.Unmarshal([]byte(raw), &rec); err == nil && !s.expired(rec.LastUpdate) {
		return false, nil
	}
	return true, s.Clear(ctx)
}

func (s *Store) expired(lastUpdate int64) bool {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return s.now().Sub(time.UnixMilli(lastUpdate)) > ttl
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Store) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
