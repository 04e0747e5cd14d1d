package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/triviahub/th-auth-api/config"
	"github.com/triviahub/th-auth-api/internal/adapters/cms"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
)

type checkBackendOptions struct {
	Timeout time.Duration
}

// runCheckBackend probes the CMS whoami endpoints with a sentinel token. A
// token_invalid answer proves the backend is up and rejecting properly; only
// backend_unavailable counts as a failure.
func runCheckBackend(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("check-backend", flag.ContinueOnError)
	opts := checkBackendOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "overall probe timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmdCtx.Config.Backend.Mode == config.BackendModeDev {
		cmdCtx.Logger.Info("backend mode is dev; the stub backend runs in-process, nothing to probe")
		return nil
	}

	client, err := cms.NewClient(cms.Config{
		BaseURL:    cmdCtx.Config.Backend.BaseURL,
		Timeout:    cmdCtx.Config.Backend.Timeout,
		RetryLimit: cmdCtx.Config.Backend.RetryLimit,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	failed := false
	for _, audience := range []domainauth.Audience{domainauth.AudienceUser, domainauth.AudienceAdmin} {
		start := time.Now()
		_, probeErr := client.WhoAmI(ctx, audience, "triviahub-admin-probe")
		elapsed := time.Since(start)

		switch {
		case probeErr == nil:
			// A sentinel token resolving to an identity means the backend is
			// not validating tokens. Surface it loudly.
			cmdCtx.Logger.Error("backend accepted a bogus token", "audience", audience)
			failed = true
		case apperrors.IsBackendUnavailable(probeErr):
			cmdCtx.Logger.Error("backend unreachable", "audience", audience, "error", probeErr, "elapsed", elapsed)
			failed = true
		default:
			cmdCtx.Logger.Info("backend responding", "audience", audience,
				"rejection", string(apperrors.GetCode(probeErr)), "elapsed", elapsed)
		}
	}

	if failed {
		return errors.New("backend probe failed")
	}
	return nil
}
