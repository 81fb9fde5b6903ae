// Package outbox is the client-resident queue of mutations that have not yet
// been acknowledged by the server. It is the only record of that work, so
// every write goes to disk before the caller is told it succeeded.
package outbox

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("outbox item not found")
	ErrClosed   = errors.New("outbox is closed")
)

type EntityType string

const (
	EntityTrip    EntityType = "trip"
	EntityExpense EntityType = "expense"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Status is the lifecycle state of an item.
//
//	pending -> syncing -> synced (removed)
//	                   -> failed -> syncing (explicit retry only)
//
// A syncing item is leased to the Store that claimed it. It returns to the
// queue when that Store closes or when the lease expires.
type Status string

const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusFailed  Status = "failed"
	StatusSynced  Status = "synced"
)

// Item is one queued mutation, replayed verbatim against the API.
type Item struct {
	ID         string
	EntityType EntityType
	Action     Action
	Method     string
	URL        string
	Body       json.RawMessage
	CreatedAt  time.Time
	Status     Status
	LastError  string
	Attempts   int

	// Set for creates only.
	ClientID        string
	ClientCreatedAt time.Time

	UpdatedAt time.Time
}

// Patch lists the fields Update may change. Nil fields are left alone.
type Patch struct {
	Status    *Status
	LastError *string
}

type Counts struct {
	Pending int
	Syncing int
	Failed  int
}
