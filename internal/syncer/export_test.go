package syncer

import (
	"context"
	"encoding/json"
	"time"
)

func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) Poll(ctx context.Context) {
	e.poll(ctx)
}

func NormalizeTimestamps(body json.RawMessage) (json.RawMessage, error) {
	return normalizeTimestamps(body)
}
