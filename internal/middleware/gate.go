package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/model"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

type identityKey struct{}

// identity caches the answer to "who is signed in" for one request.
type identity struct {
	loaded  bool
	session *model.Session
	user    *model.User
}

// Gate decides whether a request belongs to a signed in user and keeps
// pages on the right side of that line.
type Gate struct {
	sessions *SessionManager
	auth     backend.Auth
	clock    clockwork.Clock
	log      *zap.Logger
}

type GateParams struct {
	fx.In

	Sessions *SessionManager
	Auth     backend.Auth
	Clock    clockwork.Clock
	Log      *zap.Logger
}

func NewGate(p GateParams) *Gate {
	return &Gate{
		sessions: p.Sessions,
		auth:     p.Auth,
		clock:    p.Clock,
		log:      p.Log.Named("gate"),
	}
}

// Load gives the request its identity cache. It must run inside the
// session manager's Wrap.
func (g *Gate) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), identityKey{}, &identity{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func cached(ctx context.Context) *identity {
	id, _ := ctx.Value(identityKey{}).(*identity)
	return id
}

// CurrentUser asks the backend who the stored session belongs to, at most
// once per request. A failed lookup counts as nobody and is not cached.
func (g *Gate) CurrentUser(ctx context.Context) (*model.User, bool) {
	id := cached(ctx)
	if id != nil && id.loaded {
		return id.user, id.user != nil
	}

	session, user, err := g.lookup(ctx)
	if err != nil {
		g.log.Warn("could not verify session", zap.Error(err))
		return nil, false
	}

	if id != nil {
		id.loaded = true
		id.session = session
		id.user = user
	}

	return user, user != nil
}

func (g *Gate) lookup(ctx context.Context) (*model.Session, *model.User, error) {
	session, err := g.sessions.Get(ctx)
	if err != nil {
		return nil, nil, nil
	}

	refreshed := false
	if session.Expired(g.clock.Now()) {
		if session, err = g.refresh(ctx, session); session == nil {
			return nil, nil, err
		}
		refreshed = true
	}

	user, err := g.auth.CurrentUser(ctx, session.AccessToken)
	if err != nil {
		return nil, nil, backend.Fail("get user", err)
	}
	if user == nil && !refreshed {
		// the backend may have cut the token short of its expiry
		if session, err = g.refresh(ctx, session); session == nil {
			return nil, nil, err
		}
		if user, err = g.auth.CurrentUser(ctx, session.AccessToken); err != nil {
			return nil, nil, backend.Fail("get user", err)
		}
	}
	if user == nil {
		return nil, nil, nil
	}
	if user.ID != session.UserID {
		g.log.Warn("session user mismatch", zap.String("session", session.UserID), zap.String("user", user.ID))
		return nil, nil, nil
	}

	return session, user, nil
}

// refresh trades the stored refresh token for a new backend session and
// stores it. A nil session with no error means the backend turned the
// refresh token down and nobody is signed in.
func (g *Gate) refresh(ctx context.Context, old *model.Session) (*model.Session, error) {
	if old.RefreshToken == "" {
		return nil, nil
	}

	session, err := g.auth.Refresh(ctx, old.RefreshToken)
	var rf *backend.RemoteFailure
	if errors.As(err, &rf) && rf.Status >= http.StatusBadRequest && rf.Status < http.StatusInternalServerError {
		g.log.Info("refresh token rejected", zap.String("user", old.UserID), zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, backend.Fail("refresh session", err)
	}
	if session.UserID == "" {
		session.UserID = old.UserID
	}

	g.sessions.Update(ctx, session)
	g.log.Debug("session refreshed", zap.String("user", session.UserID))
	return session, nil
}

// Session returns the verified session of the current request, nil when
// nobody is signed in.
func (g *Gate) Session(ctx context.Context) *model.Session {
	if _, ok := g.CurrentUser(ctx); !ok {
		return nil
	}
	if id := cached(ctx); id != nil {
		return id.session
	}

	session, _ := g.sessions.Get(ctx)
	return session
}

func (g *Gate) invalidate(ctx context.Context) {
	if id := cached(ctx); id != nil {
		*id = identity{}
	}
}

// RequireAuthenticated sends visitors without a session to the login page.
func (g *Gate) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := g.CurrentUser(r.Context()); !ok {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAnonymous sends signed in users to the feed.
func (g *Gate) RequireAnonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := g.CurrentUser(r.Context()); ok {
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Login stores a fresh backend session for the browser.
func (g *Gate) Login(ctx context.Context, session *model.Session) error {
	g.invalidate(ctx)
	return g.sessions.Put(ctx, session)
}

// Logout signs the session out of the backend and then forgets it. When
// the backend call fails the local session is kept so the user can retry.
func (g *Gate) Logout(ctx context.Context) error {
	g.invalidate(ctx)

	session, err := g.sessions.Get(ctx)
	if err != nil {
		return g.sessions.Destroy(ctx)
	}

	if err := g.auth.SignOut(ctx, session.AccessToken); err != nil {
		return backend.Fail("sign out", err)
	}

	g.log.Info("signed out", zap.String("user", session.UserID))
	return g.sessions.Destroy(ctx)
}
