package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// Ensure SyncLock implements the interface.
var _ driven.SyncLock = (*SyncLock)(nil)

// SyncLock serialises sync runs within a single process.
type SyncLock struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewSyncLock creates a process-local lock.
func NewSyncLock() *SyncLock {
	return &SyncLock{held: make(map[string]bool)}
}

// Acquire takes key or fails with domain.ErrSyncInProgress.
func (l *SyncLock) Acquire(_ context.Context, key string) (driven.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrSyncInProgress
	}
	l.held[key] = true

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
