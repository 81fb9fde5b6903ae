package syncer

import "time"

// Status is the read-only view of the engine shown to the user.
type Status struct {
	IsOnline     bool
	IsSyncing    bool
	PendingCount int
	FailedCount  int
	LastSyncTime time.Time
	LastError    string
}

func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.status
}
