package model

import (
	"context"

	ctxpkg "github.com/stupiduntilnot/reportchat/internal/context"
)

// Request is one question sent to a backend.
type Request struct {
	Settings     Settings
	SystemPrompt string
	// History is the conversation tail, oldest first, without the new message.
	History     []ctxpkg.Message
	UserMessage string
}

// Sender is the backend abstraction used by the chat service.
type Sender interface {
	Send(ctx context.Context, req Request) (string, error)
}
