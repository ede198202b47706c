package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicflow/orchestrator/pkg/models"
)

func TestExecuteSagaAllStepsSucceed(t *testing.T) {
	o := New(nil, nil)
	s := o.CreateSaga("user-1", "book_appointment")

	var compensated []string
	require.NoError(t, o.AddAction(s.SagaID, "tool", "google_calendar", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"event_id": "evt-1"}, nil
	}, func(ctx context.Context, result map[string]any) error {
		compensated = append(compensated, result["event_id"].(string))
		return nil
	}, map[string]any{"date": "12-12-2026"}))

	require.NoError(t, o.AddAction(s.SagaID, "tool", "send_email", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"message_id": "msg-1"}, nil
	}, nil, map[string]any{"to": "patient@example.com"}))

	result, err := o.ExecuteSaga(context.Background(), s.SagaID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, compensated)
	assert.Equal(t, models.ActionSuccess, s.Actions[0].Status)
	assert.Equal(t, models.ActionSuccess, s.Actions[1].Status)
}

func TestExecuteSagaFailureCompensatesReverseOrder(t *testing.T) {
	o := New(nil, nil)
	s := o.CreateSaga("user-1", "book_appointment")

	var order []string
	require.NoError(t, o.AddAction(s.SagaID, "tool", "google_calendar", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"event_id": "evt-1"}, nil
	}, func(ctx context.Context, result map[string]any) error {
		order = append(order, "compensate:"+result["event_id"].(string))
		return nil
	}, nil))

	require.NoError(t, o.AddAction(s.SagaID, "tool", "create_ticket", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"ticket_id": "tik-1"}, nil
	}, func(ctx context.Context, result map[string]any) error {
		order = append(order, "compensate:"+result["ticket_id"].(string))
		return nil
	}, nil))

	require.NoError(t, o.AddAction(s.SagaID, "tool", "send_email", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return nil, errors.New("smtp down")
	}, nil, nil))

	result, err := o.ExecuteSaga(context.Background(), s.SagaID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "send_email")

	assert.Equal(t, []string{"compensate:tik-1", "compensate:evt-1"}, order)
	assert.Equal(t, models.ActionCompensated, s.Actions[0].Status)
	assert.Equal(t, models.ActionCompensated, s.Actions[1].Status)
	assert.Equal(t, models.ActionFailed, s.Actions[2].Status)
}

func TestExecuteSagaCompensatorFailureHaltsFurtherCompensation(t *testing.T) {
	o := New(nil, nil)
	s := o.CreateSaga("user-1", "book_appointment")

	var order []string
	require.NoError(t, o.AddAction(s.SagaID, "tool", "google_calendar", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"event_id": "evt-1"}, nil
	}, func(ctx context.Context, result map[string]any) error {
		order = append(order, "compensate:calendar")
		return nil
	}, nil))

	require.NoError(t, o.AddAction(s.SagaID, "tool", "create_ticket", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"ticket_id": "tik-1"}, nil
	}, func(ctx context.Context, result map[string]any) error {
		order = append(order, "compensate:ticket")
		return errors.New("ticket system unreachable")
	}, nil))

	require.NoError(t, o.AddAction(s.SagaID, "tool", "send_email", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return nil, errors.New("smtp down")
	}, nil, nil))

	result, err := o.ExecuteSaga(context.Background(), s.SagaID)
	require.NoError(t, err)
	assert.False(t, result.Success)

	assert.Equal(t, []string{"compensate:ticket"}, order, "the calendar compensator must never run once the ticket compensator fails")
	assert.Equal(t, models.ActionSuccess, s.Actions[0].Status, "left uncompensated for an operator to handle out of band")
	assert.Contains(t, s.Actions[1].Error, "compensation failed")
}
