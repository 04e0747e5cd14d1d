package main

import (
	"errors"
	"flag"

	redisadapter "github.com/triviahub/th-auth-api/internal/adapters/redis"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	"github.com/triviahub/th-auth-api/internal/service"
)

type resetRateLimitOptions struct {
	Audience   string
	Identifier string
	RemoteAddr string
}

// runResetRateLimit clears the limiter counter for one identifier/address
// pair, using the same key derivation the auth service uses.
func runResetRateLimit(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("reset-rate-limit", flag.ContinueOnError)
	opts := resetRateLimitOptions{}
	fs.StringVar(&opts.Audience, "audience", "user", "audience of the throttled login (user or admin)")
	fs.StringVar(&opts.Identifier, "identifier", "", "login identifier (email) to unblock")
	fs.StringVar(&opts.RemoteAddr, "remote-addr", "", "remote address of the throttled attempts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	audience := domainauth.Audience(opts.Audience)
	if !audience.Valid() {
		return errors.New("audience must be user or admin")
	}
	if opts.Identifier == "" {
		return errors.New("-identifier is required")
	}

	client, err := connectRedis(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "redis", client)

	limiter := redisadapter.NewRateLimiter(client, redisadapter.LimiterConfig{
		Attempts: cmdCtx.Config.RateLimit.Attempts,
		Window:   cmdCtx.Config.RateLimit.Window,
	})

	key := service.RateLimitKey(audience, opts.Identifier, opts.RemoteAddr)
	if err := limiter.Reset(cmdCtx.Ctx, key); err != nil {
		return err
	}
	cmdCtx.Logger.Info("rate limit reset", "audience", audience, "identifier", opts.Identifier, "remote_addr", opts.RemoteAddr)
	return nil
}
