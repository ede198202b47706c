package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicflow/orchestrator/internal/adapter"
	"github.com/clinicflow/orchestrator/internal/agents"
	"github.com/clinicflow/orchestrator/internal/convmemory"
	"github.com/clinicflow/orchestrator/internal/orchestrator"
	"github.com/clinicflow/orchestrator/internal/platform"
	"github.com/clinicflow/orchestrator/internal/saga"
	"github.com/clinicflow/orchestrator/internal/sharedstate"
	"github.com/clinicflow/orchestrator/internal/tenant"
	"github.com/clinicflow/orchestrator/internal/tools"
	"github.com/clinicflow/orchestrator/pkg/models"
)

const seedYAML = `
tenants:
  - company_id: acme
    display_name: Acme Clinic
    redis_prefix: "acme:"
    keywords:
      emergency: ["sangrado", "urgente"]
      sales: ["precio", "costo"]
      schedule: ["cita", "agendar"]
      support: ["problema", "ayuda"]
    bot_active_statuses: ["open"]
`

type fakePlatformAdapter struct {
	mu   sync.Mutex
	sent []platform.OutgoingMessage
}

func (f *fakePlatformAdapter) Send(ctx context.Context, msg platform.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakePlatformAdapter) DownloadAttachment(ctx context.Context, url string) ([]byte, error) {
	return []byte("fake-bytes"), nil
}

func newTestHandler(t *testing.T) (*Handler, *fakePlatformAdapter) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))
	reg, err := tenant.NewRegistry(path, false, slog.Default())
	require.NoError(t, err)

	routerA := adapter.New(adapter.HandlerFunc(func(ctx context.Context, in adapter.AgentInputs) (string, error) {
		return `{"intent":"SUPPORT","confidence":0.9,"keywords":[]}`, nil
	}), "router", time.Second, 0, nil, nil, nil, nil)
	agentsA := map[models.AgentKey]*adapter.Adapter{
		"support": adapter.New(adapter.HandlerFunc(func(ctx context.Context, in adapter.AgentInputs) (string, error) {
			return "Thanks for reaching out, how can we help?", nil
		}), "support", time.Second, 0, nil, nil, nil, nil),
	}
	router := agents.NewRouter(nil, nil, "", 0)
	orc := orchestrator.New(reg, router, routerA, agentsA, tools.New(nil, nil, nil, nil, nil), saga.New(nil, nil), sharedstate.NewInMemoryStore(), slog.Default(), nil, nil)

	mem := convmemory.New(convmemory.NewInMemoryBackend())
	fake := &fakePlatformAdapter{}
	status := NewInMemoryStatusStore()

	h := New(reg, orc, mem, fake, status, nil, nil, slog.Default(), nil, nil)
	return h, fake
}

func postPayload(t *testing.T, h *Handler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/webhook/chatwoot", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func basePayload() map[string]any {
	return map[string]any{
		"event":        "message_created",
		"id":           "msg-1",
		"message_type": "incoming",
		"content":      "I have a problema with my invoice",
		"conversation": map[string]any{
			"id":     "conv-1",
			"status": "open",
			"contact_inbox": map[string]any{
				"contact_id": "contact-1",
			},
			"account": map[string]any{
				"id":   "acct-1",
				"name": "acme",
			},
		},
		"sender": map[string]any{
			"id":   "contact-1",
			"type": "contact",
		},
	}
}

func TestServeHTTPProcessesIncomingMessageAndSendsReply(t *testing.T) {
	h, fake := newTestHandler(t)

	rec := postPayload(t, h, basePayload())
	require.Equal(t, http.StatusOK, rec.Code)

	var ack AckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.OK)
	assert.Equal(t, "acme", ack.CompanyID)
	assert.Equal(t, "acme_contact_contact-1", ack.UserID)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "conv-1", fake.sent[0].ConversationID)
	assert.NotEmpty(t, fake.sent[0].Content)
}

func TestServeHTTPDuplicateMessageIsAcknowledgedNotReprocessed(t *testing.T) {
	h, fake := newTestHandler(t)

	rec1 := postPayload(t, h, basePayload())
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := postPayload(t, h, basePayload())
	require.Equal(t, http.StatusOK, rec2.Code)
	var ack AckResult
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &ack))
	assert.True(t, ack.OK)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Len(t, fake.sent, 1, "duplicate delivery must not trigger a second reply")
}

func TestServeHTTPConversationUpdatedGatesSubsequentReplies(t *testing.T) {
	h, fake := newTestHandler(t)

	rec := postPayload(t, h, map[string]any{
		"event": "conversation_updated",
		"conversation": map[string]any{
			"id":     "conv-2",
			"status": "resolved",
			"account": map[string]any{
				"id":   "acct-1",
				"name": "acme",
			},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := basePayload()
	payload["conversation"].(map[string]any)["id"] = "conv-2"
	payload["id"] = "msg-2"

	rec2 := postPayload(t, h, payload)
	require.Equal(t, http.StatusOK, rec2.Code)
	var ack AckResult
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &ack))
	assert.True(t, ack.OK)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.sent, "a resolved conversation must suppress replies")
}

func TestServeHTTPMissingConversationIsBadRequest(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := postPayload(t, h, map[string]any{"event": "message_created"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
