package session

import (
	"context"
	"sync"
	"time"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/localstate"
)

const (
	// watchdogBudget is the hard ceiling on the whole sign-out flow: the
	// navigation fires at this point whether or not the backend answered.
	watchdogBudget = 2500 * time.Millisecond
	// scopeBudget bounds each individual sign-out request.
	scopeBudget = 900 * time.Millisecond
)

// SignOut invalidates the local and global sessions best-effort, clears
// cached auth artifacts, and invokes navigate exactly once, no later than
// the watchdog budget, even when the backend hangs. The client's errors are
// deliberately dropped: a failed remote sign-out must never trap the user
// on the page.
func SignOut(ctx context.Context, client backend.Client, state *localstate.Store, navigate func()) {
	var once sync.Once
	leave := func() {
		once.Do(func() {
			if state != nil {
				state.ClearAuthArtifacts()
			}
			navigate()
		})
	}

	watchdog := time.AfterFunc(watchdogBudget, leave)
	defer watchdog.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, scope := range []backend.SignOutScope{backend.SignOutLocal, backend.SignOutGlobal} {
			scopedCtx, cancel := context.WithTimeout(ctx, scopeBudget)
			_ = client.SignOut(scopedCtx, scope)
			cancel()
		}
	}()

	select {
	case <-done:
	case <-time.After(watchdogBudget):
	case <-ctx.Done():
	}
	leave()
}
