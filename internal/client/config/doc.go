// Package config loads runtime configuration for the tokenctl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c/-config or $TOKENKEEPER_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string         address:port of the tokenkeeper gRPC endpoint
//	-session string   session file path
//	-timeout dur      per-request timeout (e.g. "5s")
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "session_file": ".tokenkeeper/session.json",
//	  "request_timeout": "5s"
//	}
package config
