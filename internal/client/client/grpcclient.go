package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	pb "github.com/dmitrijs2005/tokenkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.TokenServiceClient

	mu     sync.Mutex
	tokens Tokens
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, common.TokenTypeBearer+" "+token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	current := s.Tokens()
	err := invoker(withAccessToken(ctx, current.AccessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if current.RefreshToken == "" || method == pb.TokenService_Refresh_FullMethodName {
		return err
	}

	resp, rerr := s.client.Refresh(ctx, &pb.RefreshRequest{RefreshToken: current.RefreshToken})
	if rerr != nil {
		return err
	}
	s.SetTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})

	// TOKENS REFRESHED, retrying with the new access token
	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

func NewTokenKeeperClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// InitGRPCClient dials the endpoint. Extra options come after the defaults.
func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewTokenServiceClient(conn)
	return nil
}

func (s *GRPCClient) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *GRPCClient) SetTokens(t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
}

// Register creates an account. It does not log in.
func (s *GRPCClient) Register(ctx context.Context, subject, password string) error {
	_, err := s.client.Register(ctx, &pb.RegisterRequest{Subject: subject, Password: password})
	return s.mapError(err)
}

func (s *GRPCClient) Login(ctx context.Context, subject, password string) error {
	resp, err := s.client.Login(ctx, &pb.LoginRequest{Subject: subject, Password: password})
	if err != nil {
		return s.mapError(err)
	}
	s.SetTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	return nil
}

// Refresh rotates the refresh token explicitly.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	current := s.Tokens()
	if current.RefreshToken == "" {
		return ErrNotLoggedIn
	}
	resp, err := s.client.Refresh(ctx, &pb.RefreshRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		return s.mapError(err)
	}
	s.SetTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	return nil
}

// Logout revokes the refresh token and forgets both tokens. The tokens are
// forgotten even when the server rejects the refresh token as invalid.
func (s *GRPCClient) Logout(ctx context.Context) error {
	current := s.Tokens()
	if current.RefreshToken == "" {
		return ErrNotLoggedIn
	}
	_, err := s.client.Logout(ctx, &pb.LogoutRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		if mapped := s.mapError(err); mapped != ErrUnauthorized {
			return mapped
		}
	}
	s.SetTokens(Tokens{})
	return nil
}

func (s *GRPCClient) LogoutAll(ctx context.Context) (int64, error) {
	resp, err := s.client.LogoutAll(ctx, &pb.LogoutAllRequest{})
	if err != nil {
		return 0, s.mapError(err)
	}
	s.SetTokens(Tokens{})
	return resp.Revoked, nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (string, error) {
	resp, err := s.client.WhoAmI(ctx, &pb.WhoAmIRequest{})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Subject, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &pb.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.GetStatus() != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return ErrAlreadyRegistered
	case codes.InvalidArgument:
		return errors.New(st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
