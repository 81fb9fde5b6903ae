// Package idempotency produces the client-side keys that let the server
// recognise a retried creation.
package idempotency

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Precision is the resolution ClientCreatedAt is kept at. Postgres timestamptz
// stores microseconds, so anything finer would not survive a round trip and
// the exact-pair lookup on retry would miss.
const Precision = time.Microsecond

var ErrIncomplete = errors.New("idempotency key requires both clientId and clientCreatedAt")

// Key identifies one intended creation across retries.
type Key struct {
	ClientID        string    `json:"clientId"`
	ClientCreatedAt time.Time `json:"clientCreatedAt"`
}

// FromParts builds a key from the optional body fields of a create request.
// Both nil means the request carries no key.
func FromParts(clientID *string, clientCreatedAt *time.Time) (*Key, error) {
	if clientID == nil && clientCreatedAt == nil {
		return nil, nil
	}

	if clientID == nil || *clientID == "" || clientCreatedAt == nil || clientCreatedAt.IsZero() {
		return nil, ErrIncomplete
	}

	return &Key{ClientID: *clientID, ClientCreatedAt: Normalize(*clientCreatedAt)}, nil
}

// Normalize brings a timestamp to the stored precision in UTC.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.ClientID, k.ClientCreatedAt.Format(time.RFC3339Nano))
}

// Generator hands out keys. The zero value is ready to use.
type Generator struct {
	now   func() time.Time
	newID func() string
}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate captures the creation time now; callers must store the key with
// the mutation and reuse it on every retry.
func (g *Generator) Generate() Key {
	now, newID := time.Now, uuid.NewString
	if g.now != nil {
		now = g.now
	}

	if g.newID != nil {
		newID = g.newID
	}

	return Key{ClientID: newID(), ClientCreatedAt: Normalize(now())}
}
