package audit

import "context"

// Sink is the durable storage backend a Logger flushes entries to.
type Sink interface {
	Write(ctx context.Context, e Entry) error
	Update(ctx context.Context, e Entry) error
}

// NullSink discards every entry; used when no durable backend is
// configured (e.g. local development).
type NullSink struct{}

func (NullSink) Write(ctx context.Context, e Entry) error  { return nil }
func (NullSink) Update(ctx context.Context, e Entry) error { return nil }
