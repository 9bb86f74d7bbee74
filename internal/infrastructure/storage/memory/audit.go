package memory

import (
	"context"
	"sync"

	"magasin/internal/domain/audit"
)

// AuditLog keeps recorded events in memory.
type AuditLog struct {
	mu     sync.Mutex
	events []audit.Event
}

func NewAuditLog() *AuditLog { return &AuditLog{} }

func (l *AuditLog) Record(_ context.Context, ev audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

// Events returns a copy of what was recorded.
func (l *AuditLog) Events() []audit.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]audit.Event(nil), l.events...)
}
