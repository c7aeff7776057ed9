package context

// Roles used by Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a model-agnostic chat message used across the context pipeline.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
