// Package connectjson lets Connect handlers and clients exchange plain Go structs
// as JSON, without generated protobuf messages.
package connectjson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Name is registered in place of Connect's protobuf JSON codec.
const Name = "json"

// Codec marshals messages with encoding/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return Name }

func (Codec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return b, nil
}

// Unmarshal treats an empty body as an empty message.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

// WithCodec is usable as both a handler and a client option.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}
