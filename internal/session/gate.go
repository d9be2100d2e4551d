// Package session implements the readiness/identity handshake every feature
// module performs before touching the backend: wait for a usable handle,
// resolve the authenticated principal, and sign out safely.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/talenorix/candidate-portal/internal/backend"
)

const (
	// DefaultReadyTimeout bounds how long callers wait for the handle.
	DefaultReadyTimeout = 5 * time.Second
	// readyPollInterval is the probe cadence while waiting.
	readyPollInterval = 50 * time.Millisecond

	// resolveAttempts and resolvePause bound principal resolution: each
	// attempt tries the primary lookup then the session fallback.
	resolveAttempts = 2
	resolvePause    = 150 * time.Millisecond
)

// Gate produces a ready backend handle and the current principal, or fails
// safely. One gate is shared by all modules on a page.
type Gate struct {
	client       backend.Client
	readyTimeout time.Duration

	// sleep is a test seam for the inter-attempt pause.
	sleep func(ctx context.Context, d time.Duration)
}

// NewGate wraps a client handle with the default timeout policy.
func NewGate(client backend.Client) *Gate {
	return &Gate{
		client:       client,
		readyTimeout: DefaultReadyTimeout,
		sleep:        sleepCtx,
	}
}

// WithReadyTimeout overrides the readiness budget and returns the gate for
// chaining during construction.
func (g *Gate) WithReadyTimeout(d time.Duration) *Gate {
	if d > 0 {
		g.readyTimeout = d
	}
	return g
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// AwaitClientReady polls the handle until it can serve requests, failing
// with backend.ErrNotReady once the budget elapses. The returned handle is
// the one the gate was constructed with; callers share it.
func (g *Gate) AwaitClientReady(ctx context.Context) (backend.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, g.readyTimeout)
	defer cancel()

	backoff := retry.NewConstant(readyPollInterval)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := g.client.Ready(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrNotReady, err)
	}
	return g.client, nil
}

// ResolvePrincipal fetches the current user, trying the primary lookup and
// then the cached-session fallback, up to two attempts with a short pause
// in between. A nil result means unauthenticated: the caller must redirect
// to login and perform no further reads or writes this cycle.
func (g *Gate) ResolvePrincipal(ctx context.Context, client backend.Client) *backend.Principal {
	for attempt := 1; attempt <= resolveAttempts; attempt++ {
		if p, err := client.GetUser(ctx); err == nil && p != nil && p.ID != "" {
			return p
		}
		if s, err := client.GetSession(ctx); err == nil && s != nil && s.User != nil && s.User.ID != "" {
			return s.User
		}
		if attempt < resolveAttempts {
			g.sleep(ctx, resolvePause)
		}
	}
	return nil
}
