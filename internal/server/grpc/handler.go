package grpc

import (
	"context"

	pb "github.com/dmitrijs2005/tokenkeeper/internal/proto"
)

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.RegisterResponse, error) {
	if err := s.tokens.Register(ctx, req.Subject, req.Password); err != nil {
		return nil, registerStatus(err)
	}
	return &pb.RegisterResponse{Subject: req.Subject}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.TokenPairResponse, error) {
	tokens, err := s.tokens.Login(ctx, req.Subject, req.Password)
	if err != nil {
		return nil, loginStatus(err)
	}
	return &pb.TokenPairResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *pb.RefreshRequest) (*pb.TokenPairResponse, error) {
	tokens, err := s.tokens.Rotate(ctx, req.RefreshToken)
	if err != nil {
		return nil, refreshStatus(err)
	}
	return &pb.TokenPairResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *pb.LogoutRequest) (*pb.LogoutResponse, error) {
	if err := s.tokens.Revoke(ctx, req.RefreshToken); err != nil {
		return nil, refreshStatus(err)
	}
	return &pb.LogoutResponse{}, nil
}

func (s *GRPCServer) LogoutAll(ctx context.Context, _ *pb.LogoutAllRequest) (*pb.LogoutAllResponse, error) {
	subject, ok := SubjectFromContext(ctx)
	if !ok {
		return nil, accessStatus(nil)
	}
	n, err := s.tokens.RevokeAll(ctx, subject)
	if err != nil {
		return nil, refreshStatus(err)
	}
	return &pb.LogoutAllResponse{Revoked: n}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *pb.WhoAmIRequest) (*pb.WhoAmIResponse, error) {
	subject, ok := SubjectFromContext(ctx)
	if !ok {
		return nil, accessStatus(nil)
	}
	return &pb.WhoAmIResponse{Subject: subject}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {
	return &pb.PingResponse{Status: "OK"}, nil
}
