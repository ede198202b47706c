package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinicflow/orchestrator/internal/tenant"
)

const (
	eventMessageCreated     = "message_created"
	eventConversationUpdate = "conversation_updated"

	messageTypeIncoming = "incoming"
	senderTypeAgent     = "user" // Chatwoot labels human agents "user", contacts "contact"
)

// rawID unmarshals a Chatwoot id field that may arrive as either a JSON
// number or a string, depending on the field and account configuration.
type rawID struct {
	s string
}

func (r *rawID) UnmarshalJSON(b []byte) error {
	var asString string
	if err := json.Unmarshal(b, &asString); err == nil {
		r.s = asString
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(b, &asNumber); err != nil {
		return err
	}
	r.s = asNumber.String()
	return nil
}

func (r rawID) String() string { return r.s }

// Payload is the Chatwoot-shaped inbound webhook body (§6).
type Payload struct {
	Event       string       `json:"event"`
	ID          rawID        `json:"id"`
	MessageType string       `json:"message_type"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`

	Conversation struct {
		ID     rawID  `json:"id"`
		Status string `json:"status"`

		Meta struct {
			Sender struct {
				ID   rawID  `json:"id"`
				Type string `json:"type"`
			} `json:"sender"`
		} `json:"meta"`

		ContactInbox struct {
			ContactID rawID `json:"contact_id"`
		} `json:"contact_inbox"`

		CustomAttributes struct {
			CompanyID string `json:"company_id"`
		} `json:"custom_attributes"`

		Account struct {
			ID   rawID  `json:"id"`
			Name string `json:"name"`
		} `json:"account"`
	} `json:"conversation"`

	Sender struct {
		ID   rawID  `json:"id"`
		Type string `json:"type"`
	} `json:"sender"`
}

// Attachment is one inbound media attachment.
type Attachment struct {
	FileType string `json:"file_type"`
	DataURL  string `json:"data_url"`
}

// ParsePayload decodes the raw request body into a Payload.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("webhook: invalid JSON: %w", err)
	}
	return &p, nil
}

// tenantResolve builds the tenant.WebhookPayload Resolve needs from this
// Chatwoot payload.
func (p *Payload) tenantResolve() tenant.WebhookPayload {
	var wp tenant.WebhookPayload
	wp.Conversation.Account.Name = strings.ToLower(strings.TrimSpace(p.Conversation.Account.Name))
	wp.Conversation.CustomAttributes.CompanyID = p.Conversation.CustomAttributes.CompanyID
	wp.AccountID = p.Conversation.Account.ID.String()
	return wp
}

// ConversationKey returns the conversation ID as used in Redis keys and the
// idempotency check, taken from conversation.id; it returns "" when the
// payload carries no conversation ID, and no other field is consulted.
func (p *Payload) ConversationKey() string {
	if id := p.Conversation.ID.String(); id != "" {
		return id
	}
	return ""
}

// MessageKey returns the message ID used for idempotency.
func (p *Payload) MessageKey() string {
	return p.ID.String()
}

// ContactID extracts the contact ID in the spec's stated priority order
// (§4.L): conversation.contact_inbox.contact_id, then
// conversation.meta.sender.id, then root sender.id when the root sender is
// not a human agent.
func (p *Payload) ContactID() (string, error) {
	if id := p.Conversation.ContactInbox.ContactID.String(); id != "" {
		return id, nil
	}
	if id := p.Conversation.Meta.Sender.ID.String(); id != "" {
		return id, nil
	}
	if p.Sender.Type != senderTypeAgent {
		if id := p.Sender.ID.String(); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("webhook: no contact_id resolvable from payload")
}

// UserID builds the orchestrator-facing user_id from a resolved company_id
// and contact_id (§4.L: `user_id = "{company_id}_contact_{contact_id}"`).
func UserID(companyID, contactID string) string {
	return companyID + "_contact_" + contactID
}

// IsIncoming reports whether this message_created event is from the contact
// (not an outgoing reply the bot itself, or another agent, just sent).
func (p *Payload) IsIncoming() bool {
	return p.MessageType == messageTypeIncoming
}
