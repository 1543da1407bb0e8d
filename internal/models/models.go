package models

// Conversation roles accepted from clients and forwarded to providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ValidRole reports whether role is one of the conversation roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// UnifiedChatRequest is the provider-neutral representation of a chat completion.
type UnifiedChatRequest struct {
	Model    string
	Messages []Message
	Options  map[string]any
}

// UnifiedChatResponse captures a provider response in the unified schema.
type UnifiedChatResponse struct {
	Message      Message
	Usage        Usage
	FinishReason string
	ID           string
}

// Usage records token accounting information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Model identifies a known model with provider metadata.
type Model struct {
	ID       string
	Provider string
}
