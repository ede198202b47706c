package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ChatwootConfig configures a ChatwootAdapter against one Chatwoot
// installation. AccountID is fixed per deployment; individual messages
// carry their own conversation ID.
type ChatwootConfig struct {
	BaseURL   string
	AccountID string
	APIToken  string
}

// ChatwootAdapter implements Adapter against Chatwoot's REST API. No
// Chatwoot SDK appears anywhere in the retrieval pack, so this follows the
// same thin net/http-over-JSON shape as the tool executor's ticket and
// schedule backends.
type ChatwootAdapter struct {
	httpClient *http.Client
	cfg        ChatwootConfig
}

// NewChatwootAdapter builds a ChatwootAdapter.
func NewChatwootAdapter(cfg ChatwootConfig) *ChatwootAdapter {
	return &ChatwootAdapter{httpClient: &http.Client{Timeout: 15 * time.Second}, cfg: cfg}
}

// Send posts msg.Content as an outgoing message on msg.ConversationID.
func (a *ChatwootAdapter) Send(ctx context.Context, msg OutgoingMessage) error {
	accountID := msg.AccountID
	if accountID == "" {
		accountID = a.cfg.AccountID
	}
	path := fmt.Sprintf("/api/v1/accounts/%s/conversations/%s/messages", accountID, msg.ConversationID)

	payload, err := json.Marshal(map[string]any{
		"content":      msg.Content,
		"message_type": "outgoing",
	})
	if err != nil {
		return fmt.Errorf("platform: encode outgoing message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("platform: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", a.cfg.APIToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("platform: chatwoot returned status %d", resp.StatusCode)
	}
	return nil
}

// DownloadAttachment fetches attachment bytes from url, which Chatwoot
// returns as an absolute, pre-authenticated link in the webhook payload.
func (a *ChatwootAdapter) DownloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: build attachment request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("platform: attachment download returned status %d", resp.StatusCode)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("platform: read attachment body: %w", err)
	}
	return buf.Bytes(), nil
}

var _ Adapter = (*ChatwootAdapter)(nil)
