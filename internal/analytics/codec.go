package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// The persisted sequence is a JSON array. Valid UTF-8 events are plain strings; any other event
// is an object holding its bytes in base64, so every byte sequence round trips exactly.
type binaryEvent struct {
	Bytes []byte `json:"b64"`
}

func encodeEvents(events []Event) ([]byte, error) {
	elems := make([]any, len(events))

	for i, e := range events {
		if utf8.ValidString(string(e)) {
			elems[i] = string(e)
		} else {
			elems[i] = binaryEvent{Bytes: []byte(e)}
		}
	}

	data, err := json.Marshal(elems)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}

	return data, nil
}

func decodeEvents(data []byte) ([]Event, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	events := make([]Event, len(raw))

	for i, elem := range raw {
		elem = bytes.TrimSpace(elem)

		switch {
		case len(elem) > 0 && elem[0] == '"':
			var s string
			if err := json.Unmarshal(elem, &s); err != nil {
				return nil, fmt.Errorf("decode event %d: %w", i, err)
			}

			events[i] = Event(s)
		case len(elem) > 0 && elem[0] == '{':
			var b binaryEvent
			if err := json.Unmarshal(elem, &b); err != nil {
				return nil, fmt.Errorf("decode event %d: %w", i, err)
			}

			events[i] = Event(b.Bytes)
		default:
			return nil, fmt.Errorf("decode event %d: unexpected value %s", i, elem)
		}
	}

	return events, nil
}
