package main

import (
	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/backend/local"
	"github.com/ghaggin/feed/internal/backend/rest"
	"github.com/ghaggin/feed/internal/config"
	"github.com/ghaggin/feed/internal/repository"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var backendModule = fx.Options(
	fx.Provide(
		clockwork.NewRealClock,
		newBackend,
		func(c backend.Client) backend.Auth { return c },
		func(c backend.Client) backend.Tables { return c },
	),
)

type backendParams struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Clock  clockwork.Clock
	Log    *zap.Logger
}

// newBackend picks the configured implementation. The local one brings
// its own repository, persisted when the app stops.
func newBackend(p backendParams) (backend.Client, error) {
	if p.Config.Backend.Kind != config.BackendLocal {
		return rest.New(p.Config.Backend, p.Log, p.Clock)
	}

	repo, err := repository.NewJSON(repository.JSONParams{
		LC:     p.LC,
		Config: p.Config,
		Log:    p.Log.Named("repository"),
	})
	if err != nil {
		return nil, err
	}

	p.Log.Warn("using the local development backend", zap.String("path", p.Config.Backend.Local.Path))
	return local.New(local.Params{
		Config: p.Config,
		Repo:   repo,
		Clock:  p.Clock,
		Log:    p.Log,
	})
}
