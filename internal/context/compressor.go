package context

// DefaultTailSize is the number of stored messages sent as history.
const DefaultTailSize = 8

// SimpleCompressor keeps only the last MaxMessages messages.
type SimpleCompressor struct {
	MaxMessages int
}

// Compress truncates messages to the most recent MaxMessages entries.
func (c *SimpleCompressor) Compress(messages []Message) []Message {
	if c.MaxMessages <= 0 || len(messages) <= c.MaxMessages {
		return messages
	}
	return messages[len(messages)-c.MaxMessages:]
}

// Tail returns the last n messages of history. When the final message is a
// user message equal to outgoing it is dropped, so a caller that stores the
// outgoing message before sending does not include it twice.
func Tail(history []Message, n int, outgoing string) []Message {
	c := SimpleCompressor{MaxMessages: n}
	tail := c.Compress(history)
	if k := len(tail); k > 0 && tail[k-1].Role == RoleUser && tail[k-1].Content == outgoing {
		tail = tail[:k-1]
	}
	out := make([]Message, len(tail))
	copy(out, tail)
	return out
}
