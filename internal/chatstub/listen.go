package chatstub

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/kuitang/credits-e2e/internal/config"
)

const shutdownGrace = 5 * time.Second

// ListenAndServe serves the app on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves the app on ln until ctx is done, then shuts down
// gracefully and settles pending charges.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("chatstub_listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	logger.Info("chatstub_stopped")
	return err
}

// SeedsFromConfig returns the account pool named in cfg: the spending and
// new accounts start with DefaultCredits, the zero account with none.
func SeedsFromConfig(cfg *config.Config) []Seed {
	return []Seed{
		{Email: cfg.User.Email, Password: cfg.User.Password, Credits: DefaultCredits},
		{Email: cfg.NewUser.Email, Password: cfg.NewUser.Password, Credits: DefaultCredits},
		{Email: cfg.ZeroUser.Email, Password: cfg.ZeroUser.Password, Credits: 0},
	}
}
