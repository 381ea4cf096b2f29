// Package wire encodes packets for the NATS transport. Both sides of every
// subject speak gob, so a version skew between probe, engine and gate shows
// up as a decode error instead of silently wrong counters.
package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"NetFocus/internal/model"
)

// EncodeLabeled serializes a labeled packet for publishing.
func EncodeLabeled(p *model.LabeledPacket) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode labeled packet: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeLabeled deserializes a labeled packet received from the transport.
func DecodeLabeled(data []byte) (*model.LabeledPacket, error) {
	var p model.LabeledPacket
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode labeled packet: %w", err)
	}
	return &p, nil
}

// EncodeAnnotated serializes an annotated packet for publishing.
func EncodeAnnotated(p *model.AnnotatedPacket) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode annotated packet: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeAnnotated deserializes an annotated packet received from the
// transport.
func DecodeAnnotated(data []byte) (*model.AnnotatedPacket, error) {
	var p model.AnnotatedPacket
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode annotated packet: %w", err)
	}
	return &p, nil
}
