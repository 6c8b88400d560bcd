package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// gobCodec replaces grpc-go's default "proto" codec with one backed by
// encoding/gob. The runtime's wire messages (Frame, PutDescriptor, ...)
// are plain Go structs, not generated protobuf types, so there is no
// proto.Message to hand the stock codec. Registering under the name
// "proto" is deliberate: it is the content-subtype grpc selects when a
// call sets none, so every Dial/NewServer in this package gets the gob
// codec for free without threading grpc.CallContentSubtype through every
// call site.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("wire: gob marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("wire: gob unmarshal: %w", err)
	}
	return nil
}

func (gobCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(gobCodec{})
}
