package main

import (
	"github.com/ghaggin/feed/internal/config"
	"github.com/ghaggin/feed/internal/feed"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	var flags config.Flags
	pflag.StringVarP(&flags.Path, "config", "c", "", "path to the yaml config file (default ./config/config.yaml)")
	pflag.StringVar(&flags.Backend, "backend", "", "backend implementation, rest or local")
	pflag.IntVarP(&flags.Port, "port", "p", 0, "port to listen on")
	pflag.Parse()

	newFlags := func() config.Flags {
		return flags
	}

	app := fx.New(
		fx.Provide(
			newFlags,
			config.New,
			newLogger,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		backendModule,
		feed.Module,
	)

	app.Run()
}

func newLogger(c *config.Config) (*zap.Logger, error) {
	if c.Log.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
