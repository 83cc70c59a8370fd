package feed

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/config"
	"github.com/ghaggin/feed/internal/middleware"
	"github.com/ghaggin/feed/internal/post"
	"github.com/ghaggin/feed/web"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	log    *zap.Logger
	server *http.Server
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   *config.Config
	Sessions *middleware.SessionManager
	Gate     *middleware.Gate
	Backend  backend.Client
	Posts    *post.Repository
	Clock    clockwork.Clock
}

func New(p Params) (*Server, error) {
	root, err := newRouter(p)
	if err != nil {
		return nil, err
	}

	return &Server{
		log: p.Log,
		server: &http.Server{
			Addr:    p.Config.Server.Addr(),
			Handler: root,
		},
	}, nil
}

func newRouter(p Params) (chi.Router, error) {
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}

	h := &handlers{
		sessions: p.Sessions,
		gate:     p.Gate,
		backend:  p.Backend,
		posts:    p.Posts,
		clock:    p.Clock,
		log:      p.Log.Named("feed"),
	}

	root := chi.NewRouter()
	root.Use(chimw.RequestID)
	root.Use(chimw.RealIP)
	root.Use(middleware.RequestLogger(p.Log.Named("http")))
	root.Use(chimw.Recoverer)

	root.Get("/healthz", h.healthz)
	root.Post("/api/counter", h.counter)
	root.Handle("/static/*", http.StripPrefix("/static", http.FileServer(http.FS(static))))

	root.Group(func(r chi.Router) {
		r.Use(p.Sessions.Wrap)
		r.Use(p.Gate.Load)

		// No Auth
		r.Group(func(r chi.Router) {
			r.Use(p.Gate.RequireAnonymous)
			r.Get("/login", h.loginPage)
			r.Post("/login", h.login)
			r.Get("/register", h.registerPage)
			r.Post("/register", h.register)
		})

		// Auth
		r.Group(func(r chi.Router) {
			r.Use(p.Gate.RequireAuthenticated)
			r.Get("/", h.home)
			r.Post("/posts", h.createPost)
			r.Post("/posts/{id}/delete", h.deletePost)
			r.Post("/logout", h.logout)
		})
	})

	return root, nil
}

func RegisterHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.server.Shutdown,
	})
}

func (s *Server) Start(_ context.Context) error {
	s.log.Info("serving feed", zap.String("addr", s.server.Addr))
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error shutting down server", zap.Error(err))
		}
	}()
	return nil
}
