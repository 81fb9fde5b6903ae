package idempotency

import "time"

func NewGeneratorWith(now func() time.Time, newID func() string) *Generator {
	return &Generator{now: now, newID: newID}
}
