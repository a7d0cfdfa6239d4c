// pkg/logger/alert_core.go

package logger

import (
	"context"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/alerts"
	"go.uber.org/zap/zapcore"
)

// alertCore forwards entries at or above its level to an alerts.Sender.
// Delivery happens on a background goroutine; a full queue drops the entry.
type alertCore struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
	q      *alertQueue
}

type alertQueue struct {
	sender  alerts.Sender
	timeout time.Duration
	ch      chan alerts.Alert
	done    chan struct{}
	once    sync.Once
}

func newAlertQueue(sender alerts.Sender, size int, timeout time.Duration) *alertQueue {
	q := &alertQueue{
		sender:  sender,
		timeout: timeout,
		ch:      make(chan alerts.Alert, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *alertQueue) run() {
	defer close(q.done)
	for a := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		// Errors are swallowed: logging them would feed back into this core.
		_ = q.sender.Send(ctx, a)
		cancel()
	}
}

func (q *alertQueue) enqueue(a alerts.Alert) {
	defer func() {
		// send on closed channel after Close
		_ = recover()
	}()
	select {
	case q.ch <- a:
	default:
	}
}

// close stops accepting alerts and waits for queued ones to be delivered.
func (q *alertQueue) close() {
	q.once.Do(func() { close(q.ch) })
	<-q.done
}

func newAlertCore(level zapcore.LevelEnabler, q *alertQueue) *alertCore {
	return &alertCore{LevelEnabler: level, q: q}
}

func (c *alertCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &alertCore{LevelEnabler: c.LevelEnabler, fields: merged, q: c.q}
}

func (c *alertCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *alertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	c.q.enqueue(alerts.Alert{
		Time:    entry.Time,
		Level:   entry.Level.String(),
		Logger:  entry.LoggerName,
		Message: entry.Message,
		Fields:  enc.Fields,
	})
	return nil
}

func (c *alertCore) Sync() error {
	return nil
}
