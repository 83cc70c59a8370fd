package feed

import (
	"github.com/ghaggin/feed/internal/middleware"
	"github.com/ghaggin/feed/internal/post"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		New,
		middleware.NewSessionManager,
		middleware.NewGate,
		post.New,
	),
	fx.Invoke(RegisterHooks),
)
