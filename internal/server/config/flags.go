package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string        gRPC bind address (e.g., ":50051")
//	-store string    store backend: postgres, redis or memory
//	-d string        PostgreSQL DSN
//	-redis string    Redis address
//	-s string        JWT HMAC secret key
//	-alg string      JWT signing algorithm (HS256, HS384, HS512)
//	-t int           access token validity, minutes
//	-r int           refresh token validity, minutes
//	-timeout dur     store call timeout (e.g. "3s")
//	-leeway dur      tolerated issued-at skew
//	-users string    users JSON file
//	-l string        log level
//
// Token lifetimes are given in whole minutes and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-store", "-d", "-redis", "-s", "-alg", "-t", "-r", "-timeout", "-leeway", "-users", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.StoreBackend, "store", config.StoreBackend, "refresh token store backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.SigningAlgorithm, "alg", config.SigningAlgorithm, "JWT signing algorithm")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.DurationVar(&config.StoreTimeout, "timeout", config.StoreTimeout, "store call timeout")
	fs.DurationVar(&config.Leeway, "leeway", config.Leeway, "tolerated issued-at clock skew")
	fs.StringVar(&config.UsersFile, "users", config.UsersFile, "users file")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
