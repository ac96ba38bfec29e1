package cli

import (
	"os"
	"time"

	"github.com/mfigueroa/rutero/internal/api"
	"github.com/mfigueroa/rutero/internal/config"
	"github.com/mfigueroa/rutero/internal/session"
	"github.com/mfigueroa/rutero/internal/store"
	"github.com/mfigueroa/rutero/internal/syncer"
)

// env holds everything a command needs to run: the open store, the
// sync service, and the active session. Callers own Close.
type env struct {
	cfg     config.Config
	store   *store.Store
	service *syncer.Service
	sess    session.Context
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// setup loads configuration, opens the store, and binds the session.
// Every command goes through here so the session is always explicit.
func setup(opts *RootOptions) (*env, error) {
	cfg := config.Default()
	if _, err := os.Stat(opts.ConfigPath); err == nil {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "loading configuration", err)
		}
		cfg = loaded
	}

	if opts.AgentID == "" {
		opts.AgentID = os.Getenv("RUTERO_AGENT")
	}
	sess, err := session.New(opts.AgentID, time.Now())
	if err != nil {
		return nil, NewExitError(ExitCommandError, "no agent selected: pass --agent or set RUTERO_AGENT")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening local store", err)
	}

	client := api.NewHTTPClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithToken(cfg.API.Token),
	)
	service := syncer.New(st, client, syncer.WithRetryPolicy(cfg.RetryPolicy()))

	return &env{cfg: cfg, store: st, service: service, sess: sess}, nil
}
