// Package chat ties the snapshot pipeline, the conversation store and the
// backend together behind the operations the chat widget calls.
package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	ctxpkg "github.com/stupiduntilnot/reportchat/internal/context"
	"github.com/stupiduntilnot/reportchat/internal/conversation"
	"github.com/stupiduntilnot/reportchat/internal/db"
	"github.com/stupiduntilnot/reportchat/internal/llm"
	"github.com/stupiduntilnot/reportchat/internal/model"
	"github.com/stupiduntilnot/reportchat/internal/report"
	"github.com/stupiduntilnot/reportchat/internal/settings"
)

var (
	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrEmptyMessage is returned for blank questions.
	ErrEmptyMessage = errors.New("message is empty")
)

// Recorder receives pipeline events. *db.EventLog implements it.
type Recorder interface {
	Record(eventType string, payload map[string]any) error
}

// Options configures a Service.
type Options struct {
	Normalizer    *report.Normalizer
	Prompt        ctxpkg.PromptBuilder
	Conversation  *conversation.Store
	Settings      *settings.Repository
	Sender        model.Sender
	Recorder      Recorder
	HistoryWindow int
	Log           logrus.FieldLogger
	Now           func() time.Time
}

// Service is safe for concurrent use. At most one backend request is in
// flight at a time.
type Service struct {
	opts   Options
	gate   *semaphore.Weighted
	busy   atomic.Bool
	events *hub

	mu       sync.Mutex
	current  report.ReportContext
	messages []conversation.Message
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = ctxpkg.DefaultTailSize
	}
	if opts.Normalizer == nil {
		opts.Normalizer = report.NewNormalizer(opts.Log, nil, opts.Now)
	}
	return &Service{
		opts:    opts,
		gate:    semaphore.NewWeighted(1),
		events:  newHub(),
		current: report.Empty(""),
	}
}

// UpdateSnapshot replaces the report context from a new host snapshot.
// A nil snapshot clears the bound data but keeps the page name.
func (s *Service) UpdateSnapshot(snap *report.Snapshot) report.ReportContext {
	s.mu.Lock()
	rc := s.opts.Normalizer.Normalize(snap, s.current)
	s.current = rc
	s.mu.Unlock()

	s.record(db.EventSnapshotNormalized, map[string]any{
		"page":    rc.PageName,
		"columns": len(rc.ColumnNames),
		"rows":    rc.DataRowCount,
	})
	s.events.publish(Event{Type: EventContext, Context: &rc})
	return rc
}

// Context returns the current report context.
func (s *Service) Context() report.ReportContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Busy reports whether a request is in flight.
func (s *Service) Busy() bool {
	return s.busy.Load()
}

// Send stores the question, asks the backend and stores the answer. On a
// backend fault an error notice is stored and returned together with the
// error. Validation faults return before anything is stored.
func (s *Service) Send(ctx context.Context, text string) (conversation.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return conversation.Message{}, ErrEmptyMessage
	}

	st, err := s.Settings(ctx)
	if err != nil {
		s.opts.Log.WithError(err).Warn("using default settings")
	}
	if err := st.Validate(); err != nil {
		return conversation.Message{}, err
	}

	if !s.gate.TryAcquire(1) {
		return conversation.Message{}, ErrBusy
	}
	defer s.gate.Release(1)
	s.setBusy(true)
	defer s.setBusy(false)

	// Once accepted, a request runs to an answer or a failure even if the
	// caller goes away. The backend's HTTP timeout bounds it.
	ctx = context.WithoutCancel(ctx)

	log := s.opts.Log.WithFields(logrus.Fields{"provider": st.LLMProvider, "model": st.ModelName})

	inMemory := s.append(ctx, conversation.NewMessage(text, true, s.opts.Now()))

	// The window counts stored messages, error notices included; notices
	// are then left out of what is sent.
	var provider ctxpkg.HistoryProvider = &ctxpkg.ConversationProvider{Load: func() ([]conversation.Message, error) {
		return s.opts.Conversation.Load(ctx)
	}}
	tail, err := provider.GetHistory(s.opts.HistoryWindow)
	if err != nil {
		log.WithError(err).Warn("failed to read stored history, using the in-memory copy")
		tail = ctxpkg.FromConversation(inMemory, s.opts.HistoryWindow)
	}
	req := model.Request{
		Settings:     st,
		SystemPrompt: s.opts.Prompt.Build(s.Context()),
		History:      ctxpkg.Tail(tail, 0, text),
		UserMessage:  text,
	}

	s.record(db.EventRequestStarted, map[string]any{
		"provider": st.LLMProvider,
		"model":    st.ModelName,
		"history":  len(req.History),
	})

	answer, err := s.opts.Sender.Send(ctx, req)
	if err != nil {
		log.WithError(err).Warn("request failed")
		notice := conversation.NewErrorNotice(noticeText(err), s.opts.Now())
		s.append(ctx, notice)
		payload := map[string]any{"provider": st.LLMProvider, "error": err.Error()}
		var be *llm.BackendError
		if errors.As(err, &be) {
			payload["kind"] = be.Kind
			payload["status"] = be.Status
		}
		s.record(db.EventRequestFailed, payload)
		return notice, err
	}

	reply := conversation.NewMessage(answer, false, s.opts.Now())
	s.append(ctx, reply)
	s.record(db.EventRequestCompleted, map[string]any{"provider": st.LLMProvider, "chars": len(answer)})
	return reply, nil
}

// History returns the stored conversation.
func (s *Service) History(ctx context.Context) []conversation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.loadLocked(ctx))
}

// Clear removes the conversation.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	s.messages = nil
	if err := s.opts.Conversation.Clear(ctx); err != nil {
		s.opts.Log.WithError(err).Warn("failed to clear persisted conversation")
	}
	s.mu.Unlock()

	s.record(db.EventConversationCleared, nil)
	s.events.publish(Event{Type: EventCleared})
}

// Expired drops the in-memory conversation after the sweeper removed the
// persisted one.
func (s *Service) Expired() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()

	s.record(db.EventConversationExpired, nil)
	s.events.publish(Event{Type: EventCleared})
}

// Settings returns the active settings, or the defaults with an error when
// they cannot be read.
func (s *Service) Settings(ctx context.Context) (model.Settings, error) {
	return s.opts.Settings.Load(ctx)
}

// SaveSettings overwrites the active settings.
func (s *Service) SaveSettings(ctx context.Context, st model.Settings) error {
	if err := s.opts.Settings.Save(ctx, st); err != nil {
		return err
	}
	s.record(db.EventSettingsSaved, map[string]any{"provider": st.LLMProvider, "model": st.ModelName})
	return nil
}

// Subscribe returns a channel of events and a function that ends the
// subscription. Slow subscribers miss events rather than block the service.
func (s *Service) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// append adds m to the conversation and persists it. Persistence faults are
// logged and the in-memory conversation is kept.
func (s *Service) append(ctx context.Context, m conversation.Message) []conversation.Message {
	s.mu.Lock()
	msgs := append(slices.Clone(s.loadLocked(ctx)), m)
	s.messages = msgs
	if err := s.opts.Conversation.Save(ctx, msgs); err != nil {
		s.opts.Log.WithError(err).Warn("failed to persist conversation")
	}
	s.mu.Unlock()

	s.events.publish(Event{Type: EventMessage, Message: &m})
	return slices.Clone(msgs)
}

func (s *Service) loadLocked(ctx context.Context) []conversation.Message {
	loaded, err := s.opts.Conversation.Load(ctx)
	if err != nil {
		s.opts.Log.WithError(err).Warn("failed to load conversation, using in-memory copy")
		return s.messages
	}
	s.messages = loaded
	return loaded
}

func (s *Service) setBusy(v bool) {
	s.busy.Store(v)
	busy := v
	s.events.publish(Event{Type: EventBusy, Busy: &busy})
}

func (s *Service) record(eventType string, payload map[string]any) {
	if s.opts.Recorder == nil {
		return
	}
	if err := s.opts.Recorder.Record(eventType, payload); err != nil {
		s.opts.Log.WithError(err).WithField("event", eventType).Debug("failed to record event")
	}
}

func noticeText(err error) string {
	var be *llm.BackendError
	if errors.As(err, &be) {
		return "Error: " + be.Message
	}
	return "Error: " + err.Error()
}
