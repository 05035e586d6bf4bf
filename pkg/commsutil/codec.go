package commsutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const codecLogPrefix = "commsutil:codec"

// ErrEmptyPayload is returned when a message carries no data.
var ErrEmptyPayload = errors.New("empty payload")

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s - encode: %w", codecLogPrefix, err)
	}
	return data, nil
}

// DecodePayload deserializes JSON bytes into v. Whitespace-only payloads fail with
// ErrEmptyPayload so callers can tell "nothing sent" from "garbage sent".
func DecodePayload(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s - decode: %w", codecLogPrefix, ErrEmptyPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s - decode: %w", codecLogPrefix, err)
	}
	return nil
}
