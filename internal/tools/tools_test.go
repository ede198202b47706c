package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSchedule struct {
	slots     []string
	booking   BookingResult
	deletedID string
}

func (f *fakeSchedule) CheckAvailabilityRaw(ctx context.Context, date, treatment string) ([]string, error) {
	return f.slots, nil
}

func (f *fakeSchedule) CreateBooking(ctx context.Context, req BookingRequest) (BookingResult, error) {
	return f.booking, nil
}

func (f *fakeSchedule) DeleteEvent(ctx context.Context, eventID string) error {
	f.deletedID = eventID
	return nil
}

func TestExecuteCheckAvailability(t *testing.T) {
	sched := &fakeSchedule{slots: []string{"09:00", "09:30"}}
	exec := New(sched, nil, nil, nil, nil)

	res, err := exec.Execute(context.Background(), GoogleCalendar, map[string]any{
		"action":    "check_availability",
		"date":      "11-12-2024",
		"treatment": "limpieza",
	}, "user1", "schedule", "conv1")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"09:00", "09:30"}, res.Data["available_slots"])
}

func TestExecuteCheckAvailabilityMissingParamsFails(t *testing.T) {
	exec := New(&fakeSchedule{}, nil, nil, nil, nil)

	res, err := exec.Execute(context.Background(), GoogleCalendar, map[string]any{
		"action": "check_availability",
	}, "user1", "schedule", "conv1")

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestExecuteDeleteEvent(t *testing.T) {
	sched := &fakeSchedule{}
	exec := New(sched, nil, nil, nil, nil)

	res, err := exec.Execute(context.Background(), GoogleCalendar, map[string]any{
		"action":   "delete_event",
		"event_id": "evt-1",
	}, "user1", "schedule", "conv1")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "evt-1", sched.deletedID)
}

func TestExecuteUnconfiguredBackendFails(t *testing.T) {
	exec := New(nil, nil, nil, nil, nil)

	res, err := exec.Execute(context.Background(), SendEmail, map[string]any{
		"to_email":      "a@b.com",
		"template_name": "welcome",
		"template_vars": map[string]any{},
	}, "user1", "sales", "conv1")

	require.NoError(t, err)
	assert.False(t, res.Success)
}
