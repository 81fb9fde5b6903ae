package outbox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
)

// NewCreate queues a POST of payload with the idempotency key embedded as
// clientId/clientCreatedAt. payload must encode to a JSON object.
func NewCreate(entity EntityType, url string, payload any, key idempotency.Key) (*Item, error) {
	fields, err := toObject(payload)
	if err != nil {
		return nil, err
	}

	clientID, err := json.Marshal(key.ClientID)
	if err != nil {
		return nil, fmt.Errorf("encoding clientId: %w", err)
	}

	clientCreatedAt, err := json.Marshal(key.ClientCreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("encoding clientCreatedAt: %w", err)
	}

	fields["clientId"] = clientID
	fields["clientCreatedAt"] = clientCreatedAt

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}

	return &Item{
		EntityType:      entity,
		Action:          ActionCreate,
		Method:          http.MethodPost,
		URL:             url,
		Body:            body,
		ClientID:        key.ClientID,
		ClientCreatedAt: key.ClientCreatedAt,
	}, nil
}

// NewUpdate queues a PATCH. Updates address a server-assigned id and carry no
// idempotency key.
func NewUpdate(entity EntityType, url string, payload any) (*Item, error) {
	fields, err := toObject(payload)
	if err != nil {
		return nil, err
	}

	delete(fields, "clientId")
	delete(fields, "clientCreatedAt")

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}

	return &Item{
		EntityType: entity,
		Action:     ActionUpdate,
		Method:     http.MethodPatch,
		URL:        url,
		Body:       body,
	}, nil
}

func NewDelete(entity EntityType, url string) *Item {
	return &Item{
		EntityType: entity,
		Action:     ActionDelete,
		Method:     http.MethodDelete,
		URL:        url,
	}
}

func toObject(payload any) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}

	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}

	return fields, nil
}
