// Package llm defines the boundary the orchestrator uses to talk to the
// language-model backend: a single black-box text-in/text-out generator
// with a chat-message history slot. The backend itself is out of scope;
// only this interface and one concrete adapter are implemented here.
package llm

import "context"

// Message is one turn of chat history handed to the completion backend.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest carries everything a Client needs to produce one reply.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []Message
	Model        string
	MaxTokens    int
	Temperature  float64
}

// Client is the LLM backend boundary. Implementations must be safe for
// concurrent use; the orchestrator calls Complete from every specialist
// handler and the router, often concurrently across requests.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
