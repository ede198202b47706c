package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TicketSystem is the backend for create_ticket/close_ticket (§4.H).
type TicketSystem interface {
	Create(ctx context.Context, subject, description, priority, requesterID string) (ticketID string, err error)
	Close(ctx context.Context, ticketID string) error
}

// HTTPTicketSystem talks to a generic REST ticketing backend. No
// third-party ticketing SDK appears in the retrieval pack, so this is a
// thin net/http client over the same JSON-over-HTTP shape the schedule
// backend uses.
type HTTPTicketSystem struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// NewHTTPTicketSystem builds an HTTPTicketSystem against baseURL.
func NewHTTPTicketSystem(baseURL, apiToken string) *HTTPTicketSystem {
	return &HTTPTicketSystem{httpClient: &http.Client{}, baseURL: baseURL, apiToken: apiToken}
}

func (t *HTTPTicketSystem) Create(ctx context.Context, subject, description, priority, requesterID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var resp struct {
		TicketID string `json:"ticket_id"`
	}
	err := t.do(ctx, http.MethodPost, "/tickets", map[string]any{
		"subject":      subject,
		"description":  description,
		"priority":     priority,
		"requester_id": requesterID,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.TicketID, nil
}

func (t *HTTPTicketSystem) Close(ctx context.Context, ticketID string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return t.do(ctx, http.MethodPost, fmt.Sprintf("/tickets/%s/close", ticketID), nil, nil)
}

func (t *HTTPTicketSystem) do(ctx context.Context, method, path string, payload any, out any) error {
	var body bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = *bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ticket system request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("ticket system returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
