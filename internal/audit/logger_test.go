package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	written []Entry
	updated []Entry
}

func (s *recordingSink) Write(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, e)
	return nil
}

func (s *recordingSink) Update(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, e)
	return nil
}

func (s *recordingSink) snapshot() (written, updated []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.written...), append([]Entry(nil), s.updated...)
}

func TestLoggerLogThenMarkSuccessFlushesOnClose(t *testing.T) {
	sink := &recordingSink{}
	logger := NewLogger(Config{Enabled: true, SampleRate: 1.0}, sink, nil)

	id := logger.Log("user-1", "tool", "send_email", map[string]any{"to": "a@b.com"}, true, "void_email")
	require.NotEmpty(t, id)
	logger.MarkSuccess(id, map[string]any{"message_id": "msg-1"})
	logger.Close()

	written, updated := sink.snapshot()
	require.Len(t, written, 1)
	assert.Equal(t, id, written[0].ID)
	assert.Equal(t, "user-1", written[0].UserID)
	assert.Equal(t, StatusPending, written[0].Status)
	assert.True(t, written[0].Compensable)

	require.Len(t, updated, 1)
	assert.Equal(t, id, updated[0].ID)
	assert.Equal(t, StatusSuccess, updated[0].Status)
}

func TestLoggerMarkFailedRecordsErrorMessage(t *testing.T) {
	sink := &recordingSink{}
	logger := NewLogger(Config{Enabled: true, SampleRate: 1.0}, sink, nil)

	id := logger.Log("user-2", "tool", "create_ticket", nil, false, "")
	logger.MarkFailed(id, "backend unavailable")
	logger.Close()

	_, updated := sink.snapshot()
	require.Len(t, updated, 1)
	assert.Equal(t, StatusFailed, updated[0].Status)
	assert.Equal(t, "backend unavailable", updated[0].ErrorMessage)
}

func TestLoggerDisabledNeverWrites(t *testing.T) {
	sink := &recordingSink{}
	logger := NewLogger(Config{Enabled: false}, sink, nil)

	id := logger.Log("user-3", "tool", "send_email", nil, false, "")
	assert.NotEmpty(t, id, "id is still returned so callers can pass it to MarkSuccess/MarkFailed unconditionally")
	logger.MarkSuccess(id, nil)
	logger.Close()

	written, updated := sink.snapshot()
	assert.Empty(t, written)
	assert.Empty(t, updated)
}

func TestLoggerEnqueueNeverBlocksOnFullBuffer(t *testing.T) {
	sink := &recordingSink{}
	logger := NewLogger(Config{Enabled: true, SampleRate: 1.0, BufferSize: 1}, sink, nil)
	defer logger.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			logger.Log("user-4", "tool", "google_calendar", nil, false, "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Log() blocked when the buffer was full")
	}
}
