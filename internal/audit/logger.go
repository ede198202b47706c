package audit

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger buffers audit entries and flushes them to a Sink asynchronously,
// so a slow or unavailable audit backend never blocks the orchestrator's
// reply path (§4.I: "never on the critical path for the reply — failures
// logged, not raised"). Grounded on the teacher's buffered Logger/writeLoop
// shape, re-pointed at a durable Sink instead of a log stream.
type Logger struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger
	buffer chan op
	done   chan struct{}
	wg     sync.WaitGroup
}

type opKind int

const (
	opWrite opKind = iota
	opUpdate
)

type op struct {
	kind  opKind
	entry Entry
}

// NewLogger builds a Logger. If sink is nil, NullSink is used.
func NewLogger(cfg Config, sink Sink, logger *slog.Logger) *Logger {
	if sink == nil {
		sink = NullSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1000
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	l := &Logger{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With("component", "audit"),
		buffer: make(chan op, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.writeLoop()
	return l
}

// Log records a new action as pending and returns its audit_id. Per §4.I's
// signature, errors from the durable backend never surface here — only a
// warning log.
func (l *Logger) Log(userID, actionType, actionName string, inputParams map[string]any, compensable bool, compensationAction string) string {
	id := uuid.NewString()
	if !l.cfg.Enabled || !l.sampled() {
		return id
	}

	entry := Entry{
		ID:                 id,
		UserID:             userID,
		ActionType:         actionType,
		ActionName:         actionName,
		InputParams:        inputParams,
		Compensable:        compensable,
		CompensationAction: compensationAction,
		Status:             StatusPending,
		CreatedAt:          time.Now(),
	}
	l.enqueue(op{kind: opWrite, entry: entry})
	return id
}

// MarkSuccess records auditID's terminal success and result payload.
func (l *Logger) MarkSuccess(auditID string, result any) {
	l.enqueue(op{kind: opUpdate, entry: Entry{ID: auditID, Status: StatusSuccess, Result: result, CompletedAt: time.Now()}})
}

// MarkFailed records auditID's terminal failure.
func (l *Logger) MarkFailed(auditID string, errMessage string) {
	l.enqueue(op{kind: opUpdate, entry: Entry{ID: auditID, Status: StatusFailed, ErrorMessage: errMessage, CompletedAt: time.Now()}})
}

func (l *Logger) sampled() bool {
	if l.cfg.SampleRate >= 1.0 {
		return true
	}
	return rand.Float64() < l.cfg.SampleRate // #nosec G404 -- sampling does not require cryptographic randomness
}

// enqueue never blocks the caller: a full buffer drops the entry and logs
// a warning rather than stalling the reply path.
func (l *Logger) enqueue(o op) {
	if !l.cfg.Enabled {
		return
	}
	select {
	case l.buffer <- o:
	default:
		l.logger.Warn("audit buffer full, dropping entry", "audit_id", o.entry.ID)
	}
}

func (l *Logger) writeLoop() {
	defer l.wg.Done()
	ctx := context.Background()
	for {
		select {
		case o, ok := <-l.buffer:
			if !ok {
				return
			}
			l.apply(ctx, o)
		case <-l.done:
			l.drain(ctx)
			return
		}
	}
}

func (l *Logger) drain(ctx context.Context) {
	for {
		select {
		case o := <-l.buffer:
			l.apply(ctx, o)
		default:
			return
		}
	}
}

func (l *Logger) apply(ctx context.Context, o op) {
	var err error
	switch o.kind {
	case opWrite:
		err = l.sink.Write(ctx, o.entry)
	case opUpdate:
		err = l.sink.Update(ctx, o.entry)
	}
	if err != nil {
		l.logger.Warn("audit sink write failed", "audit_id", o.entry.ID, "error", err)
	}
}

// Close flushes buffered entries and stops the writer goroutine.
func (l *Logger) Close() {
	if !l.cfg.Enabled {
		return
	}
	close(l.done)
	l.wg.Wait()
}
