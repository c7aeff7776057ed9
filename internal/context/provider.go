package context

import "github.com/stupiduntilnot/reportchat/internal/conversation"

// ConversationProvider reads history through a conversation loader.
type ConversationProvider struct {
	Load func() ([]conversation.Message, error)
}

// GetHistory returns the messages among the most recent `limit` stored ones,
// ordered chronologically (oldest first). A limit of zero or less covers
// every message.
func (p *ConversationProvider) GetHistory(limit int) ([]Message, error) {
	stored, err := p.Load()
	if err != nil {
		return nil, err
	}
	return FromConversation(stored, limit), nil
}

// FromConversation maps the last n stored messages to role messages. Error
// notices count towards n but are not returned.
func FromConversation(stored []conversation.Message, n int) []Message {
	if n > 0 && len(stored) > n {
		stored = stored[len(stored)-n:]
	}
	results := make([]Message, 0, len(stored))
	for _, m := range stored {
		if m.IsError {
			continue
		}
		role := RoleAssistant
		if m.IsUser {
			role = RoleUser
		}
		results = append(results, Message{Role: role, Content: m.Text})
	}
	return results
}
