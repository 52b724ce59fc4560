package heartbeat_test

import (
	"context"
	"log"
	"slices"
	"sync"
)

// memLogger captures logs for assertion in tests
type memLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *memLogger) append(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, level+": "+msg)
	l.mu.Unlock()
}

func (l *memLogger) print(level, msg string, args ...any) {
	if len(args) > 0 {
		log.Printf("%s: %s %v", level, msg, args)
	} else {
		log.Printf("%s: %s", level, msg)
	}
}

// has reports whether a message was logged at level.
func (l *memLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.entries, level+": "+msg)
}

func (l *memLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.append("DEBUG", msg)
	l.print("DEBUG", msg, args...)
}
func (l *memLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.append("INFO", msg)
	l.print("INFO", msg, args...)
}
func (l *memLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.append("WARN", msg)
	l.print("WARN", msg, args...)
}
func (l *memLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.append("ERROR", msg)
	l.print("ERROR", msg, args...)
}
