// Package portalcli is the terminal front end of the candidate portal: a
// small REPL that signs the user in, then exposes one tab per feature module
// backed by the shared synchronizer cycle.
package portalcli

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/localstate"
	"github.com/talenorix/candidate-portal/internal/portalcli/config"
	"github.com/talenorix/candidate-portal/internal/session"
)

// App wires the backend handle, the session gate, and the feature modules
// behind the REPL commands.
type App struct {
	config    *config.Config
	client    backend.Client
	gate      *session.Gate
	state     *localstate.Store
	reader    *bufio.Reader
	principal *backend.Principal
	tabs      *tabSet
}

// NewApp builds the composition root: one client handle, one gate, one
// local-state store. Feature modules are constructed after login, when the
// principal is known.
func NewApp(c *config.Config) (*App, error) {
	state, err := localstate.Open(c.StateDir)
	if err != nil {
		log.Printf("error opening state dir: %s", err.Error())
		return nil, err
	}

	client := backend.NewRESTClient(backend.Config{
		BaseURL:     c.BaseURL,
		AnonKey:     c.AnonKey,
		HTTPTimeout: c.HTTPTimeout,
		Storage:     c.Storage,
	})

	return &App{
		config: c,
		client: client,
		gate:   session.NewGate(client).WithReadyTimeout(c.ReadyTimeout),
		state:  state,
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

// Run awaits backend readiness, then enters the REPL. A readiness timeout is
// reported and the program exits cleanly; it never panics the terminal.
func (a *App) Run(ctx context.Context) {
	defer a.client.Close()

	if _, err := a.gate.AwaitClientReady(ctx); err != nil {
		log.Printf("Backend is not ready: %s", err.Error())
		return
	}

	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.principal != nil
}
