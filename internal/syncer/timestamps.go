package syncer

import (
	"encoding/json"
	"fmt"
	"time"
)

// Body fields that hold timestamps. They were serialised at enqueue time and
// are re-encoded in one canonical form before every transmission.
var timestampFields = []string{"clientCreatedAt", "tripDate", "expenseDate"}

var timestampLayouts = []string{time.RFC3339Nano, time.DateTime, time.DateOnly}

func normalizeTimestamps(body json.RawMessage) (json.RawMessage, error) {
	if len(body) == 0 {
		return body, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}

	for _, name := range timestampFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			// null or a non-string value; the server decides.
			continue
		}

		t, err := parseTimestamp(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}

		enc, err := json.Marshal(t.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}

		fields[name] = enc
	}

	return json.Marshal(fields)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
