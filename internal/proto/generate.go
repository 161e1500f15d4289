// Package proto holds the tokenkeeper gRPC API generated from tokenkeeper.proto.
package proto

//go:generate protoc --go_out=. --go_opt=paths=source_relative --go-grpc_out=. --go-grpc_opt=paths=source_relative tokenkeeper.proto
