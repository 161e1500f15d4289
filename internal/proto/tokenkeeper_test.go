package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func TestDescriptor_ServiceMethods(t *testing.T) {
	svc := File_tokenkeeper_proto.Services().ByName("TokenService")
	require.NotNil(t, svc)

	var names []string
	for i := 0; i < svc.Methods().Len(); i++ {
		names = append(names, string(svc.Methods().Get(i).Name()))
	}
	assert.Equal(t, []string{"Register", "Login", "Refresh", "Logout", "LogoutAll", "WhoAmI", "Ping"}, names)
	assert.Equal(t, "tokenkeeper.TokenService", TokenService_ServiceDesc.ServiceName)
}

func TestWireFormat(t *testing.T) {
	b, err := proto.Marshal(&LogoutAllResponse{Revoked: 3})
	require.NoError(t, err)
	// field 1, varint 3
	assert.Equal(t, []byte{0x08, 0x03}, b)

	in := &TokenPairResponse{AccessToken: "a", RefreshToken: "r"}
	b, err = proto.Marshal(in)
	require.NoError(t, err)

	out := &TokenPairResponse{}
	require.NoError(t, proto.Unmarshal(b, out))
	assert.True(t, proto.Equal(in, out))
}

func TestNilGetters(t *testing.T) {
	var p *PingResponse
	var tp *TokenPairResponse
	assert.Empty(t, p.GetStatus())
	assert.Empty(t, tp.GetAccessToken())
	assert.Empty(t, tp.GetRefreshToken())
}
