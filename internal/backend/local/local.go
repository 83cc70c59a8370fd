// Package local is an in-process stand-in for the hosted backend, for
// development without network access. It keeps accounts, profiles and
// posts in a repository and issues signed access tokens.
package local

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/config"
	"github.com/ghaggin/feed/internal/model"
	"github.com/ghaggin/feed/internal/post"
	"github.com/ghaggin/feed/internal/repository"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var _ backend.Client = (*Backend)(nil)

type Backend struct {
	repo     repository.Repository
	secret   []byte
	lifetime time.Duration
	clock    clockwork.Clock
	log      *zap.Logger

	mu      sync.Mutex
	revoked map[string]time.Time
	// refresh token to account id; tokens live in memory only
	grants map[string]string
}

type Params struct {
	fx.In

	Config *config.Config
	Repo   repository.Repository
	Clock  clockwork.Clock
	Log    *zap.Logger
}

func New(p Params) (*Backend, error) {
	cfg := p.Config.Backend.Local
	if cfg.TokenSecret == "" {
		return nil, errors.New("local backend needs a token secret")
	}

	lifetime := cfg.TokenLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}

	return &Backend{
		repo:     p.Repo,
		secret:   []byte(cfg.TokenSecret),
		lifetime: lifetime,
		clock:    p.Clock,
		log:      p.Log.Named("local"),
		revoked:  map[string]time.Time{},
		grants:   map[string]string{},
	}, nil
}

func fail(op string, status int, msg string) error {
	return &backend.RemoteFailure{Op: op, Status: status, Message: msg}
}

func notFound(op string) error {
	return &backend.RemoteFailure{Op: op, Status: http.StatusNotFound, Err: backend.ErrNotFound}
}

// caller resolves token to the account it was issued for.
func (b *Backend) caller(ctx context.Context, op, token string) (*repository.Account, error) {
	claims, err := b.parse(token)
	if err != nil {
		return nil, fail(op, http.StatusUnauthorized, "invalid JWT")
	}

	a, err := b.repo.GetAccount(ctx, claims.Subject)
	if err != nil {
		return nil, fail(op, http.StatusUnauthorized, "user not found")
	}

	return a, nil
}

func (b *Backend) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	a, err := b.caller(ctx, "get user", token)
	if err != nil {
		return nil, nil
	}

	return &model.User{ID: a.ID, Email: a.Email}, nil
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	a, err := b.repo.GetAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fail("sign in", http.StatusBadRequest, "Invalid login credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		b.log.Info("rejected sign in", zap.String("user", a.ID))
		return nil, fail("sign in", http.StatusBadRequest, "Invalid login credentials")
	}

	return b.issue(a)
}

func (b *Backend) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fail("sign up", http.StatusBadRequest, "Unable to validate email address: invalid format")
	}
	if len(password) < minPasswordLength {
		return nil, fail("sign up", http.StatusUnprocessableEntity, "Password should be at least 6 characters.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, backend.Fail("sign up", err)
	}

	a := &repository.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    b.clock.Now(),
	}

	err = b.repo.AddAccount(ctx, a)
	if errors.Is(err, repository.ErrConflict) {
		return nil, fail("sign up", http.StatusUnprocessableEntity, "User already registered")
	}
	if err != nil {
		return nil, backend.Fail("sign up", err)
	}

	b.log.Info("account created", zap.String("user", a.ID))
	return b.issue(a)
}

func (b *Backend) SignOut(_ context.Context, token string) error {
	claims, err := b.parse(token)
	if err != nil {
		return nil
	}

	b.revoke(claims)
	return nil
}

// Refresh rotates refreshToken: it stops working once it has been used.
func (b *Backend) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	id, ok := b.redeem(refreshToken)
	if !ok {
		return nil, fail("refresh session", http.StatusBadRequest, "Invalid Refresh Token: Refresh Token Not Found")
	}

	a, err := b.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, fail("refresh session", http.StatusBadRequest, "Invalid Refresh Token: User Not Found")
	}

	return b.issue(a)
}

func (b *Backend) InsertProfile(ctx context.Context, token string, p *model.Profile) error {
	a, err := b.caller(ctx, "insert profile", token)
	if err != nil {
		return err
	}
	if a.ID != p.ID {
		return fail("insert profile", http.StatusForbidden, `new row violates row-level security policy for table "profiles"`)
	}
	if strings.TrimSpace(p.Username) == "" {
		return fail("insert profile", http.StatusBadRequest, `null value in column "username" violates not-null constraint`)
	}

	err = b.repo.AddProfile(ctx, p)
	if errors.Is(err, repository.ErrConflict) {
		return fail("insert profile", http.StatusConflict, `duplicate key value violates unique constraint "profiles_username_key"`)
	}
	return backend.Fail("insert profile", err)
}

func (b *Backend) GetProfile(ctx context.Context, _, id string) (*model.Profile, error) {
	p, err := b.repo.GetProfile(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("get profile")
	}
	if err != nil {
		return nil, backend.Fail("get profile", err)
	}
	return p, nil
}

func (b *Backend) InsertPost(ctx context.Context, token string, np *model.NewPost) (*model.Post, error) {
	a, err := b.caller(ctx, "insert post", token)
	if err != nil {
		return nil, err
	}
	if a.ID != np.AuthorID {
		return nil, fail("insert post", http.StatusForbidden, `new row violates row-level security policy for table "tweets"`)
	}
	if err := post.Validate(np.Content); err != nil {
		return nil, fail("insert post", http.StatusBadRequest, `new row violates check constraint "tweets_content_check"`)
	}

	p := &model.Post{
		ID:        model.ID(uuid.NewString()),
		AuthorID:  np.AuthorID,
		Content:   np.Content,
		CreatedAt: b.clock.Now().UTC(),
	}
	if err := b.repo.AddPost(ctx, p); err != nil {
		return nil, backend.Fail("insert post", err)
	}

	return p, nil
}

func (b *Backend) ListPosts(ctx context.Context, _ string) ([]model.Post, error) {
	posts, err := b.repo.ListPosts(ctx)
	if err != nil {
		return nil, backend.Fail("list posts", err)
	}
	return posts, nil
}

func (b *Backend) GetPostAuthor(ctx context.Context, _ string, id model.ID) (string, error) {
	p, err := b.repo.GetPost(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", notFound("get post")
	}
	if err != nil {
		return "", backend.Fail("get post", err)
	}
	return p.AuthorID, nil
}

// DeletePost applies the ownership policy itself. Like a row level policy,
// a post the caller does not own looks the same as a missing one.
func (b *Backend) DeletePost(ctx context.Context, token string, id model.ID) error {
	a, err := b.caller(ctx, "delete post", token)
	if err != nil {
		return err
	}

	p, err := b.repo.GetPost(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("delete post")
	}
	if err != nil {
		return backend.Fail("delete post", err)
	}
	if p.AuthorID != a.ID {
		b.log.Warn("delete of foreign post refused", zap.String("user", a.ID), zap.Stringer("post", id))
		return notFound("delete post")
	}

	if err := b.repo.DeletePost(ctx, id); err != nil {
		return backend.Fail("delete post", err)
	}
	return nil
}
