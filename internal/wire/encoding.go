package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Encode/Decode gob-serialize the wire descriptor types (ForkDescriptor,
// RemotePointer, PutDescriptor, SignalPayload) into AM frame payloads.
// Exported so package comm can build a Frame.Payload without reaching
// into gobCodec, which exists purely to satisfy grpc's encoding.Codec
// interface for the unary/stream RPCs themselves.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("wire: decode: %w", err)
	}
	return nil
}
