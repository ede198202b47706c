// Package platform defines the boundary to the chat-platform adapter:
// webhook ingress is handled by internal/webhook, but outgoing-message
// egress and attachment download are external collaborators specified
// only at this boundary (§6).
package platform

import "context"

// OutgoingMessage is a reply to send back through the chat platform.
type OutgoingMessage struct {
	AccountID      string
	ConversationID string
	Content        string
}

// Adapter is the chat-platform egress boundary.
type Adapter interface {
	// Send delivers a reply to the platform's conversation endpoint.
	Send(ctx context.Context, msg OutgoingMessage) error

	// DownloadAttachment fetches attachment bytes by URL for transcription
	// or image-description pipelines, both explicitly out of scope (§1);
	// callers treat a nil/empty result as "no media context available".
	DownloadAttachment(ctx context.Context, url string) ([]byte, error)
}
