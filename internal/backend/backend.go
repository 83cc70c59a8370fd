// Package backend describes the hosted backend-as-a-service the feed is
// built on: authentication plus the profiles and posts tables.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghaggin/feed/internal/model"
)

var (
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("not found")
)

type Auth interface {
	// CurrentUser returns nil and no error when the token does not
	// identify anybody.
	CurrentUser(ctx context.Context, token string) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	// SignUp may return a session without an access token when the
	// backend requires the address to be confirmed first.
	SignUp(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context, token string) error
	// Refresh trades a refresh token for a new session. The refresh token
	// is single use.
	Refresh(ctx context.Context, refreshToken string) (*model.Session, error)
}

type Tables interface {
	InsertProfile(ctx context.Context, token string, p *model.Profile) error
	GetProfile(ctx context.Context, token, id string) (*model.Profile, error)

	InsertPost(ctx context.Context, token string, p *model.NewPost) (*model.Post, error)
	ListPosts(ctx context.Context, token string) ([]model.Post, error)
	GetPostAuthor(ctx context.Context, token string, id model.ID) (string, error)
	DeletePost(ctx context.Context, token string, id model.ID) error
}

type Client interface {
	Auth
	Tables
}

// RemoteFailure wraps any error reported by, or on the way to, the backend.
type RemoteFailure struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteFailure) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *RemoteFailure) Unwrap() error {
	return e.Err
}

// Reason is the human readable part of the failure, without the operation.
func (e *RemoteFailure) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "error desconocido"
}

// Fail wraps err as a RemoteFailure for op. An err that already is one is
// returned unchanged.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var rf *RemoteFailure
	if errors.As(err, &rf) {
		return err
	}
	return &RemoteFailure{Op: op, Err: err}
}

// Message extracts the text shown to the user for err.
func Message(err error) string {
	var rf *RemoteFailure
	if errors.As(err, &rf) {
		return rf.Reason()
	}
	return err.Error()
}
