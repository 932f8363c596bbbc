package api

import (
	"context"

	"github.com/soaringjerry/mindbridge/internal/services"
)

// Store is everything the HTTP layer persists. The memory, SQLite and
// Firestore backends all implement it.
type Store interface {
	services.UserStore
	services.AssessmentRecordStore
	services.MoodEntryStore
	services.AuditStore
	Close() error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

var _ Store = (*memoryStore)(nil)
