// Package context turns a report context and the stored conversation into
// what a backend request carries: the system prompt and the history turns.
package context

// HistoryProvider reads chat history as role messages, oldest first.
type HistoryProvider interface {
	GetHistory(limit int) ([]Message, error)
}

// Compressor bounds a message list.
type Compressor interface {
	Compress(messages []Message) []Message
}

// Assembler orders the system prompt, history and new question the way one
// backend family expects them.
type Assembler interface {
	Assemble(system string, history []Message, userMsg string) []Message
}

var (
	_ HistoryProvider = (*ConversationProvider)(nil)
	_ Compressor      = (*SimpleCompressor)(nil)
	_ Assembler       = (*StandardAssembler)(nil)
	_ Assembler       = (*TurnAssembler)(nil)
)
