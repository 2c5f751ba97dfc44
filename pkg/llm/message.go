package llm

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation history carried by a chat request.
// The backends targeted here (OpenAI-compatible and Ollama chat endpoints)
// share this flat role/content shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage creates a message with the given role and text content.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}
