// pkg/logger/logger.go

package logger

import (
	"io"
	"os"
	"time"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/alerts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Encoding selects the log line format.
type Encoding string

const (
	EncodingAuto    Encoding = ""
	EncodingConsole Encoding = "console"
	EncodingJSON    Encoding = "json"
)

// Options configures New.
type Options struct {
	Level    string
	Encoding Encoding
	// Output defaults to stdout.
	Output io.Writer
	// AlertSender, when set, receives every entry at AlertLevel or above.
	AlertSender alerts.Sender
	AlertLevel  zapcore.Level
}

// Logger owns the zap logger and the alert queue behind it.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
	queue *alertQueue
}

// New builds the process logger. Console encoding is used when stdout is a
// terminal and no encoding was requested.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	enc := opts.Encoding
	if enc == EncodingAuto {
		enc = EncodingJSON
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			enc = EncodingConsole
		}
	}

	var encoder zapcore.Encoder
	if enc == EncodingConsole {
		encoder = zapcore.NewConsoleEncoder(encoderConfig(true))
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig(false))
	}

	level := zap.NewAtomicLevelAt(ParseLogLevel(opts.Level))
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)

	l := &Logger{Level: level}
	if opts.AlertSender != nil {
		alertLevel := opts.AlertLevel
		if alertLevel < zapcore.WarnLevel {
			alertLevel = zapcore.WarnLevel
		}
		l.queue = newAlertQueue(opts.AlertSender, 64, 5*time.Second)
		core = zapcore.NewTee(core, newAlertCore(alertLevel, l.queue))
	}

	l.Logger = zap.New(core, zap.AddCaller())
	return l
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level string) {
	l.Level.SetLevel(ParseLogLevel(level))
}

// Close flushes buffered entries and drains pending alerts.
func (l *Logger) Close() {
	_ = l.Sync()
	if l.queue != nil {
		l.queue.close()
	}
}
