package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicflow/orchestrator/internal/adapter"
	"github.com/clinicflow/orchestrator/internal/agents"
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
    keywords:
      emergency: ["sangrado", "urgente"]
      sales: ["precio", "costo"]
      schedule: ["cita", "agendar"]
      support: ["problema", "ayuda"]
    required_booking_fields: ["patient_name", "email"]
    treatment_durations:
      limpieza:
        minutes: 30
        sessions: 1
`

func newTestRegistry(t *testing.T) *tenant.Registry {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))
	reg, err := tenant.NewRegistry(path, false, slog.Default())
	require.NoError(t, err)
	return reg
}

func handlerAdapter(text string, err error) *adapter.Adapter {
	h := adapter.HandlerFunc(func(ctx context.Context, in adapter.AgentInputs) (string, error) {
		return text, err
	})
	return adapter.New(h, "test", time.Second, 0, nil, nil, nil, nil)
}

func newTestOrchestrator(t *testing.T, agentsA map[models.AgentKey]*adapter.Adapter) *Orchestrator {
	reg := newTestRegistry(t)
	router := agents.NewRouter(nil, nil, "", 0)
	routerA := handlerAdapter(`{"intent":"SALES","confidence":0.95,"keywords":["precio"]}`, nil)
	store := sharedstate.NewInMemoryStore()
	sagas := saga.New(nil, nil)
	toolExec := tools.New(nil, nil, nil, nil, nil)
	return New(reg, router, routerA, agentsA, toolExec, sagas, store, slog.Default(), nil, nil)
}

func TestHandleSimpleSalesReplyNoSecondaryIntent(t *testing.T) {
	agentsA := map[models.AgentKey]*adapter.Adapter{
		"sales": handlerAdapter("Our cleaning service costs $50. Want to book it?", nil),
	}
	o := newTestOrchestrator(t, agentsA)

	reply, err := o.Handle(context.Background(), Input{
		Question:  "how much does a cleaning cost",
		UserID:    "user-1",
		CompanyID: "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "Our cleaning service costs $50. Want to book it?", reply.Text)
	assert.Equal(t, models.Intent("SALES"), reply.State.Intent)
	assert.False(t, reply.State.HandoffRequested)
}

func TestHandleEmptyQuestionFailsValidation(t *testing.T) {
	o := newTestOrchestrator(t, map[models.AgentKey]*adapter.Adapter{})

	reply, err := o.Handle(context.Background(), Input{
		Question:  "",
		UserID:    "user-1",
		CompanyID: "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, genericErrorReply, reply.Text)
}

func TestHandleUnknownTenantFailsValidation(t *testing.T) {
	o := newTestOrchestrator(t, map[models.AgentKey]*adapter.Adapter{})

	reply, err := o.Handle(context.Background(), Input{
		Question:  "hi",
		UserID:    "user-1",
		CompanyID: "unknown-company",
	})
	require.NoError(t, err)
	assert.Equal(t, genericErrorReply, reply.Text)
}

func TestHandleSecondaryIntentTriggersHandoff(t *testing.T) {
	salesCalls := 0
	scheduleCalls := 0
	agentsA := map[models.AgentKey]*adapter.Adapter{
		"sales": handlerAdapter("A cleaning costs $50.", nil),
		"schedule": adapter.New(adapter.HandlerFunc(func(ctx context.Context, in adapter.AgentInputs) (string, error) {
			scheduleCalls++
			return "I can check availability for you.", nil
		}), "schedule", time.Second, 0, nil, nil, nil, nil),
	}
	_ = salesCalls
	o := newTestOrchestrator(t, agentsA)

	reply, err := o.Handle(context.Background(), Input{
		Question:  "how much does it cost, and can I book a cita for tomorrow",
		UserID:    "user-1",
		CompanyID: "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, scheduleCalls)
	assert.True(t, reply.State.HandoffRequested)
	assert.Equal(t, models.AgentKey("sales"), reply.State.HandoffFrom)
	assert.Equal(t, models.AgentKey("schedule"), reply.State.HandoffTo)
	assert.Equal(t, "I can check availability for you.", reply.Text)
}

func TestHandleRetryEscalatesThenStopsWithinTransitionCap(t *testing.T) {
	// A reply that never clears validate_output's length floor keeps
	// should_retry true; handle_retry must still terminate within two
	// retries (escalating to support) rather than looping to the cap.
	agentsA := map[models.AgentKey]*adapter.Adapter{
		"support": handlerAdapter("ok", nil),
	}
	o := newTestOrchestrator(t, agentsA)
	o.routerA = handlerAdapter(`{"intent":"SUPPORT","confidence":0.95,"keywords":[]}`, nil)

	reply, err := o.Handle(context.Background(), Input{
		Question:  "asdf qwer",
		UserID:    "user-1",
		CompanyID: "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Text)
	assert.True(t, reply.State.ShouldEscalate)
	assert.Less(t, reply.State.Transitions, maxTransitions)
}
