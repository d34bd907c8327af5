package config

import (
	"flag"
	"os"
	"time"

	"github.com/vposukhov/authvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   token HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-e int      reset token validity, minutes
//	-m int      failed attempts allowed before lockout
//	-w int      rate-limit window, minutes
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-e", "-m", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessValidity := fs.Int("t", int(config.AccessTokenValidity.Minutes()), "access token validity (in minutes)")
	refreshValidity := fs.Int("r", int(config.RefreshTokenValidity.Minutes()), "refresh token validity (in minutes)")
	resetValidity := fs.Int("e", int(config.ResetTokenValidity.Minutes()), "reset token validity (in minutes)")

	fs.IntVar(&config.RateLimitMaxAttempts, "m", config.RateLimitMaxAttempts, "failed attempts allowed before lockout")
	window := fs.Int("w", int(config.RateLimitWindow.Minutes()), "rate-limit window (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidity = time.Duration(*accessValidity) * time.Minute
	config.RefreshTokenValidity = time.Duration(*refreshValidity) * time.Minute
	config.ResetTokenValidity = time.Duration(*resetValidity) * time.Minute
	config.RateLimitWindow = time.Duration(*window) * time.Minute
}
