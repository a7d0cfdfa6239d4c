// pkg/logger/global.go

package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var global atomic.Pointer[Logger]

// SetGlobal installs l as the process logger and returns the previous one.
func SetGlobal(l *Logger) *Logger {
	zap.ReplaceGlobals(l.Logger)
	return global.Swap(l)
}

// Global returns the process logger, building a default one on first use.
func Global() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	l := New(Options{})
	if global.CompareAndSwap(nil, l) {
		zap.ReplaceGlobals(l.Logger)
		return l
	}
	return global.Load()
}

// L returns the process zap logger.
func L() *zap.Logger {
	return Global().Logger
}

// Sync flushes the process logger. Should be called before the application exits.
func Sync() error {
	if l := global.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
