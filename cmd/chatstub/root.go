package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/credits-e2e/internal/chatstub"
	"github.com/kuitang/credits-e2e/internal/config"
	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/obs"
	"github.com/kuitang/credits-e2e/internal/ratelimit"
)

type serveOptions struct {
	addr         string
	messageCost  int
	chargeDelay  time.Duration
	pollInterval time.Duration
	perSecond    float64
	burst        int
}

func newRootCmd() *cobra.Command {
	opts := serveOptions{
		addr:      "127.0.0.1:8090",
		perSecond: ratelimit.DefaultConfig.PerSecond,
		burst:     ratelimit.DefaultConfig.Burst,
	}

	cmd := &cobra.Command{
		Use:   "chatstub",
		Short: "Serve the in-memory chat app with a credits balance",
		Long: `chatstub serves a minimal chat app: email/password login, a credits
badge, an avatar menu with Log Out, and a message box that charges
credits shortly after each accepted message.

Accounts come from the E2E_* environment: E2E_USER_EMAIL and
E2E_NEW_USER_EMAIL start with 320 credits, E2E_ZERO_USER_EMAIL with none.
All share E2E_PASSWORD.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Wrap(errs.InvalidArgument, err.Error(), err)
	})

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", opts.addr, "listen address")
	f.IntVar(&opts.messageCost, "message-cost", 0, "credits charged per message (default 10)")
	f.DurationVar(&opts.chargeDelay, "charge-delay", 0, "delay before a message is charged (default 500ms, negative for none)")
	f.DurationVar(&opts.pollInterval, "poll-interval", 0, "how often the page refreshes the badge (default 500ms)")
	f.Float64Var(&opts.perSecond, "rate", opts.perSecond, "messages per second per account")
	f.IntVar(&opts.burst, "burst", opts.burst, "message burst per account")
	return cmd
}

func (o serveOptions) chatOptions(cfg *config.Config) chatstub.Options {
	return chatstub.Options{
		MessageCost:  o.messageCost,
		ChargeDelay:  o.chargeDelay,
		PollInterval: o.pollInterval,
		RateLimit: ratelimit.Config{
			PerSecond: o.perSecond,
			Burst:     o.burst,
			IdleTTL:   ratelimit.DefaultConfig.IdleTTL,
		},
		Hasher:   chatstub.LightArgon2,
		Accounts: chatstub.SeedsFromConfig(cfg),
	}
}

func serve(ctx context.Context, o serveOptions) error {
	if o.perSecond <= 0 || o.burst <= 0 {
		return errs.New(errs.InvalidArgument, "--rate and --burst must be positive")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, err.Error(), err)
	}
	obs.Pkg("chatstub").Info("chatstub_config", cfg.LogAttrs()...)
	srv, err := chatstub.New(o.chatOptions(cfg))
	if err != nil {
		return err
	}
	if err := srv.ListenAndServe(ctx, o.addr); err != nil {
		return errs.Wrap(errs.Unavailable, "chatstub: "+err.Error(), err)
	}
	return nil
}
