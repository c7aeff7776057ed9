package context

import "strings"

// StandardAssembler builds the list for backends that take the system prompt
// as the first message: system, history, then the new question. A blank
// system prompt is left out.
type StandardAssembler struct{}

func (a *StandardAssembler) Assemble(system string, history []Message, userMsg string) []Message {
	messages := make([]Message, 0, len(history)+2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, history...)
	return append(messages, Message{Role: RoleUser, Content: userMsg})
}

// TurnAssembler builds the list for backends that carry the system prompt in
// a separate field. The list holds only user and assistant turns and opens
// with a user turn.
type TurnAssembler struct{}

func (a *TurnAssembler) Assemble(_ string, history []Message, userMsg string) []Message {
	messages := make([]Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == RoleSystem {
			continue
		}
		if len(messages) == 0 && m.Role != RoleUser {
			continue
		}
		messages = append(messages, m)
	}
	return append(messages, Message{Role: RoleUser, Content: userMsg})
}
