package session

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/backendtest"
	"github.com/talenorix/candidate-portal/internal/localstate"
)

func openState(t *testing.T) *localstate.Store {
	t.Helper()
	s, err := localstate.Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSignOut_BothScopesThenNavigate(t *testing.T) {
	fake := backendtest.New()
	state := openState(t)

	var navigations atomic.Int32
	SignOut(context.Background(), fake, state, func() { navigations.Add(1) })

	require.Equal(t, []backend.SignOutScope{backend.SignOutLocal, backend.SignOutGlobal}, fake.SignOutCalls)
	require.Equal(t, int32(1), navigations.Load())
}

func TestSignOut_HungBackendStillNavigatesWithinBudget(t *testing.T) {
	fake := backendtest.New()
	fake.SignOutDelay = 10 * time.Second
	state := openState(t)

	var navigations atomic.Int32
	start := time.Now()
	SignOut(context.Background(), fake, state, func() { navigations.Add(1) })

	// Each scope is cut off at its own budget; the whole flow never waits
	// for the hung backend.
	require.Equal(t, int32(1), navigations.Load())
	require.Less(t, time.Since(start), watchdogBudget+time.Second)
}

func TestSignOut_ErrorsAreSwallowed(t *testing.T) {
	fake := backendtest.New()
	fake.SignOutErr = context.DeadlineExceeded
	state := openState(t)

	var navigations atomic.Int32
	SignOut(context.Background(), fake, state, func() { navigations.Add(1) })
	require.Equal(t, int32(1), navigations.Load())
}

func TestSignOut_ClearsAuthArtifacts(t *testing.T) {
	fake := backendtest.New()
	dir := t.TempDir()
	state, err := localstate.Open(dir)
	require.NoError(t, err)

	require.NoError(t, state.Set(localstate.AuthCacheKey, "session-blob"))
	require.NoError(t, state.Set(localstate.ActiveTabKey, "skills"))
	require.NoError(t, state.Set("sb-project-auth-token", "tok"))
	require.NoError(t, state.Set("unrelated", "keep me"))

	SignOut(context.Background(), fake, state, func() {})

	for _, gone := range []string{localstate.AuthCacheKey, localstate.ActiveTabKey, "sb-project-auth-token"} {
		_, err := os.Stat(filepath.Join(dir, gone))
		require.True(t, os.IsNotExist(err), "expected %s to be removed", gone)
	}
	require.Equal(t, "keep me", state.Get("unrelated"))
}

func TestSignOut_NilStateIsSafe(t *testing.T) {
	fake := backendtest.New()
	var navigations atomic.Int32
	SignOut(context.Background(), fake, nil, func() { navigations.Add(1) })
	require.Equal(t, int32(1), navigations.Load())
}
