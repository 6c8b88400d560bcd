package wire

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestGobCodecRegisteredAsProto(t *testing.T) {
	c := encoding.GetCodec("proto")
	require.NotNil(t, c, "gobCodec must register itself under the \"proto\" content-subtype in init()")
	require.IsType(t, gobCodec{}, c)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	desc := ForkDescriptor{
		Caller:      2,
		AckID:       uuid.New(),
		SerialState: true,
		Handler:     "compute.square",
		ArgSize:     4,
		Arg:         []byte{1, 2, 3, 4},
	}

	payload, err := Encode(desc)
	require.NoError(t, err)

	var got ForkDescriptor
	require.NoError(t, Decode(payload, &got))
	require.Equal(t, desc, got)
}

func TestPutDescriptorRoundTrip(t *testing.T) {
	desc := PutDescriptor{Addr: 128, Data: []byte("segment bytes")}
	payload, err := Encode(desc)
	require.NoError(t, err)

	var got PutDescriptor
	require.NoError(t, Decode(payload, &got))
	require.Equal(t, desc, got)
}
