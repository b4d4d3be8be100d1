package gateway

import (
	"strings"

	"llmgated/pkg/types"
)

// ChatTemplate renders a message list into the prompt format a model family
// was trained on.
type ChatTemplate interface {
	Render(messages []types.ChatMessage) string
}

// llama3Template emits the Llama 3 instruct header format and leaves an open
// assistant header for the model to complete.
type llama3Template struct{}

func (llama3Template) Render(messages []types.ChatMessage) string {
	var b strings.Builder
	b.WriteString("<|begin_of_text|>")
	for _, msg := range messages {
		b.WriteString("<|start_header_id|>")
		b.WriteString(string(msg.Role))
		b.WriteString("<|end_header_id|>\n\n")
		b.WriteString(msg.Content)
		b.WriteString("<|eot_id|>")
	}
	b.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")
	return b.String()
}

// simpleTemplate is the plain-text fallback for models with no known format.
type simpleTemplate struct{}

func (simpleTemplate) Render(messages []types.ChatMessage) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, roleLabel(msg.Role)+": "+msg.Content)
	}
	return strings.Join(parts, "\n\n")
}

// roleLabel capitalizes the role for the plain-text template. The handlers
// reject messages without a role, but Render must not panic on one.
func roleLabel(role types.ChatRole) string {
	s := string(role)
	if s == "" {
		return "User"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// TemplateForModel picks a template by model name.
func TemplateForModel(name string) ChatTemplate {
	if strings.Contains(strings.ToLower(name), "llama") {
		return llama3Template{}
	}
	return simpleTemplate{}
}
