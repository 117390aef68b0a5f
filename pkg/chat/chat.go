package chat

import "fmt"

const (
	ChatRoleUser   = "user"
	ChatRoleAgent  = "assistant"
	ChatRoleSystem = "system"
)

// ChatMessage is a single message in a provider conversation. Providers that
// take a flat prompt plus a system instruction build these from a
// GenerateRequest.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// GenerateRequest is one structured generation call: a prompt, the
// instruction that frames it, an output budget and the shape the response
// must take.
type GenerateRequest struct {
	Prompt            string
	SystemInstruction string
	MaxOutputTokens   int
	Schema            *Schema
}

func (r GenerateRequest) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	if r.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens cannot be negative")
	}
	return nil
}

// Messages renders the request as a system + user conversation.
func (r GenerateRequest) Messages() []ChatMessage {
	msgs := make([]ChatMessage, 0, 2)
	if r.SystemInstruction != "" {
		msgs = append(msgs, ChatMessage{Role: ChatRoleSystem, Content: r.SystemInstruction})
	}
	return append(msgs, ChatMessage{Role: ChatRoleUser, Content: r.Prompt})
}
