package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	pb "github.com/dmitrijs2005/tokenkeeper/internal/proto"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/services"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/users"
	"github.com/dmitrijs2005/tokenkeeper/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop(), &fakeTokens{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop(), &fakeTokens{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

// startBufconn serves a real TokenService over an in-memory listener.
func startBufconn(t *testing.T) (pb.TokenServiceClient, *timex.ManualClock, *users.StaticDirectory) {
	t.Helper()

	clock := timex.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	codec, err := auth.NewCodec([]byte("secret"), "HS256", clock, 0)
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	dir := users.NewStaticDirectory([]users.User{{Subject: "a@x.com", PasswordHash: string(hash)}})
	cfg := &config.Config{AccessTokenValidityDuration: time.Minute, RefreshTokenValidityDuration: time.Hour}
	svc := services.NewTokenService(refreshtokens.NewMemoryRepository(), codec, dir, cfg, clock, logging.Nop())

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewGRPCServer("bufnet", logging.Nop(), svc).Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return pb.NewTokenServiceClient(conn), clock, dir
}

func authorized(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "Bearer "+token)
}

func TestEndToEnd_TokenLifecycle(t *testing.T) {
	client, clock, _ := startBufconn(t)
	ctx := context.Background()

	_, err := client.Login(ctx, &pb.LoginRequest{Subject: "a@x.com", Password: "bad"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	p1, err := client.Login(ctx, &pb.LoginRequest{Subject: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	who, err := client.WhoAmI(authorized(p1.AccessToken), &pb.WhoAmIRequest{})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", who.Subject)

	_, err = client.WhoAmI(ctx, &pb.WhoAmIRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	p2, err := client.Refresh(ctx, &pb.RefreshRequest{RefreshToken: p1.RefreshToken})
	require.NoError(t, err)

	_, err = client.Refresh(ctx, &pb.RefreshRequest{RefreshToken: p1.RefreshToken})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, msgInvalidRefreshToken, status.Convert(err).Message())

	clock.Advance(2 * time.Minute)
	_, err = client.WhoAmI(authorized(p2.AccessToken), &pb.WhoAmIRequest{})
	assert.Equal(t, msgTokenExpired, status.Convert(err).Message())

	_, err = client.Logout(ctx, &pb.LogoutRequest{RefreshToken: p2.RefreshToken})
	require.NoError(t, err)
	_, err = client.Logout(ctx, &pb.LogoutRequest{RefreshToken: p2.RefreshToken})
	require.NoError(t, err)
	_, err = client.Refresh(ctx, &pb.RefreshRequest{RefreshToken: p2.RefreshToken})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	p3, err := client.Login(ctx, &pb.LoginRequest{Subject: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	_, err = client.Login(ctx, &pb.LoginRequest{Subject: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	all, err := client.LogoutAll(authorized(p3.AccessToken), &pb.LogoutAllRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Revoked)

	pong, err := client.Ping(ctx, &pb.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", pong.GetStatus())
}

func TestEndToEnd_DisabledSubject(t *testing.T) {
	client, _, dir := startBufconn(t)
	ctx := context.Background()

	pair, err := client.Login(ctx, &pb.LoginRequest{Subject: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	require.True(t, dir.Disable("a@x.com"))

	_, err = client.WhoAmI(authorized(pair.AccessToken), &pb.WhoAmIRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, msgInvalidToken, status.Convert(err).Message())

	_, err = client.Refresh(ctx, &pb.RefreshRequest{RefreshToken: pair.RefreshToken})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, msgInvalidRefreshToken, status.Convert(err).Message())
}

func TestEndToEnd_Register(t *testing.T) {
	client, _, _ := startBufconn(t)
	ctx := context.Background()

	resp, err := client.Register(ctx, &pb.RegisterRequest{Subject: "new@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", resp.GetSubject())

	_, err = client.Register(ctx, &pb.RegisterRequest{Subject: "new@x.com", Password: "secret1"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
	_, err = client.Register(ctx, &pb.RegisterRequest{Subject: "short@x.com", Password: "123"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	pair, err := client.Login(ctx, &pb.LoginRequest{Subject: "new@x.com", Password: "secret1"})
	require.NoError(t, err)
	who, err := client.WhoAmI(authorized(pair.AccessToken), &pb.WhoAmIRequest{})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", who.Subject)
}
