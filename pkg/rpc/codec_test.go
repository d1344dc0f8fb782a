package rpc

import (
	"testing"

	"github.com/cuemby/ozone/pkg/types"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	require.Equal(t, CodecName, c.Name())
}

func TestCodecRoundTrip(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)

	req := &AllocateContainerRequest{
		Name:              "container-1",
		ReplicationType:   types.ReplicationRatis,
		ReplicationFactor: types.FactorThree,
	}

	data, err := c.Marshal(req)
	require.NoError(t, err)

	var out AllocateContainerRequest
	require.NoError(t, c.Unmarshal(data, &out))
	require.Equal(t, *req, out)
}
