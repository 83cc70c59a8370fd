package middleware

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/ghaggin/feed/internal/config"
	"github.com/ghaggin/feed/internal/model"
)

const (
	sessionKey = "session_key"
	flashKey   = "flash"
	draftKey   = "draft"
)

var (
	errSessionNotFound = errors.New("session not found")
)

// SessionManager stores the backend session and one-shot notifications in
// a server side session keyed by cookie.
type SessionManager struct {
	impl *scs.SessionManager
}

func NewSessionManager(c *config.Config) (*SessionManager, error) {
	gob.Register(&model.Session{})
	gob.Register(&model.Notification{})

	sm := &SessionManager{}
	sm.impl = scs.New()
	sm.impl.Lifetime = c.Session.Lifetime
	sm.impl.Cookie.Name = c.Session.CookieName
	sm.impl.Cookie.Secure = c.Session.Secure
	sm.impl.Cookie.SameSite = http.SameSiteLaxMode

	return sm, nil
}

func (s *SessionManager) Wrap(next http.Handler) http.Handler {
	return s.impl.LoadAndSave(next)
}

func (s *SessionManager) Get(ctx context.Context) (*model.Session, error) {
	session, ok := s.impl.Get(ctx, sessionKey).(*model.Session)
	if !ok {
		return nil, errSessionNotFound
	}

	return session, nil
}

// Put stores session under a fresh token so a token issued before login
// cannot be reused after it.
func (s *SessionManager) Put(ctx context.Context, session *model.Session) error {
	if err := s.impl.RenewToken(ctx); err != nil {
		return err
	}

	s.impl.Put(ctx, sessionKey, session)
	return nil
}

// Update replaces the stored session in place, keeping the session token.
func (s *SessionManager) Update(ctx context.Context, session *model.Session) {
	s.impl.Put(ctx, sessionKey, session)
}

func (s *SessionManager) Destroy(ctx context.Context) error {
	return s.impl.Destroy(ctx)
}

func (s *SessionManager) Flash(ctx context.Context, kind model.NotificationKind, msg string) {
	s.impl.Put(ctx, flashKey, &model.Notification{Kind: kind, Message: msg})
}

// PopFlash returns the pending notification, if any, and forgets it.
func (s *SessionManager) PopFlash(ctx context.Context) *model.Notification {
	n, _ := s.impl.Pop(ctx, flashKey).(*model.Notification)
	return n
}

// PutDraft keeps unsent text so the next render can put it back.
func (s *SessionManager) PutDraft(ctx context.Context, text string) {
	s.impl.Put(ctx, draftKey, text)
}

func (s *SessionManager) PopDraft(ctx context.Context) string {
	return s.impl.PopString(ctx, draftKey)
}
