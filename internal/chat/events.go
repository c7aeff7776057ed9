package chat

import (
	"sync"

	"github.com/stupiduntilnot/reportchat/internal/conversation"
	"github.com/stupiduntilnot/reportchat/internal/report"
)

// EventType names a service event.
type EventType string

const (
	EventMessage EventType = "message"
	EventBusy    EventType = "busy"
	EventCleared EventType = "cleared"
	EventContext EventType = "context"
)

// Event is pushed to subscribers.
type Event struct {
	Type    EventType             `json:"type"`
	Message *conversation.Message `json:"message,omitempty"`
	Busy    *bool                 `json:"busy,omitempty"`
	Context *report.ReportContext `json:"context,omitempty"`
}

const subscriberBuffer = 32

type hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newHub() *hub {
	return &hub{subs: map[chan Event]struct{}{}}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
