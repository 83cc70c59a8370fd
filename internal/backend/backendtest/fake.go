// Package backendtest provides an in-memory backend.Client that records
// the calls made to it.
package backendtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/model"
)

var _ backend.Client = (*Fake)(nil)

// Fake keeps users keyed by access token. Setting one of the Err fields
// makes the matching call fail with it.
type Fake struct {
	mu sync.Mutex

	Users    map[string]*model.User
	Profiles map[string]*model.Profile
	Posts    []model.Post
	Now      time.Time

	// RefreshTokens maps a refresh token to the access token it renews.
	RefreshTokens map[string]string

	CurrentUserErr   error
	SignInErr        error
	SignUpErr        error
	SignOutErr       error
	RefreshErr       error
	InsertProfileErr error
	GetProfileErr    error
	InsertPostErr    error
	ListPostsErr     error
	GetPostAuthorErr error
	DeletePostErr    error

	Calls []string

	InsertedPosts    []model.NewPost
	InsertedProfiles []model.Profile
}

func New() *Fake {
	return &Fake{
		Users:         map[string]*model.User{},
		Profiles:      map[string]*model.Profile{},
		RefreshTokens: map[string]string{},
		Now:           time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

// AddUser registers a user reachable with token.
func (f *Fake) AddUser(token string, u *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Users[token] = u
}

// CallCount returns how many times name was called.
func (f *Fake) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *Fake) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, name)
}

func (f *Fake) CurrentUser(_ context.Context, token string) (*model.User, error) {
	f.record("CurrentUser")
	if f.CurrentUserErr != nil {
		return nil, f.CurrentUserErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Users[token], nil
}

func (f *Fake) SignIn(_ context.Context, email, _ string) (*model.Session, error) {
	f.record("SignIn")
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for token, u := range f.Users {
		if u.Email == email {
			return f.session(u.ID, token), nil
		}
	}
	return nil, &backend.RemoteFailure{Op: "sign in", Status: 400, Message: "Invalid login credentials"}
}

func (f *Fake) SignUp(_ context.Context, email, _ string) (*model.Session, error) {
	f.record("SignUp")
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("user-%d", len(f.Users)+1)
	token := "token-" + id
	f.Users[token] = &model.User{ID: id, Email: email}
	return f.session(id, token), nil
}

// session hands out a refresh token for token, valid for an hour from Now.
// The caller holds f.mu.
func (f *Fake) session(userID, token string) *model.Session {
	refresh := "refresh-" + token
	f.RefreshTokens[refresh] = token
	return &model.Session{
		UserID:       userID,
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresAt:    f.Now.Add(time.Hour),
	}
}

// Refresh replaces the access token behind refreshToken with a new one and
// rotates the refresh token.
func (f *Fake) Refresh(_ context.Context, refreshToken string) (*model.Session, error) {
	f.record("Refresh")
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.RefreshTokens[refreshToken]
	delete(f.RefreshTokens, refreshToken)
	u := f.Users[old]
	if !ok || u == nil {
		return nil, &backend.RemoteFailure{Op: "refresh session", Status: 400, Message: "Invalid Refresh Token: Refresh Token Not Found"}
	}

	token := old + "+"
	delete(f.Users, old)
	f.Users[token] = u
	return f.session(u.ID, token), nil
}

func (f *Fake) SignOut(_ context.Context, token string) error {
	f.record("SignOut")
	if f.SignOutErr != nil {
		return f.SignOutErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Users, token)
	return nil
}

func (f *Fake) InsertProfile(_ context.Context, _ string, p *model.Profile) error {
	f.record("InsertProfile")
	if f.InsertProfileErr != nil {
		return f.InsertProfileErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.InsertedProfiles = append(f.InsertedProfiles, *p)
	f.Profiles[p.ID] = p
	return nil
}

func (f *Fake) GetProfile(_ context.Context, _, id string) (*model.Profile, error) {
	f.record("GetProfile")
	if f.GetProfileErr != nil {
		return nil, f.GetProfileErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Profiles[id]
	if !ok {
		return nil, &backend.RemoteFailure{Op: "get profile", Status: 404, Err: backend.ErrNotFound}
	}
	return p, nil
}

func (f *Fake) InsertPost(_ context.Context, _ string, p *model.NewPost) (*model.Post, error) {
	f.record("InsertPost")
	if f.InsertPostErr != nil {
		return nil, f.InsertPostErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.InsertedPosts = append(f.InsertedPosts, *p)
	post := model.Post{
		ID:        model.ID(fmt.Sprint(len(f.Posts) + 1)),
		AuthorID:  p.AuthorID,
		Content:   p.Content,
		CreatedAt: f.Now,
	}
	f.Posts = append(f.Posts, post)
	return &post, nil
}

func (f *Fake) ListPosts(_ context.Context, _ string) ([]model.Post, error) {
	f.record("ListPosts")
	if f.ListPostsErr != nil {
		return nil, f.ListPostsErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	posts := make([]model.Post, len(f.Posts))
	copy(posts, f.Posts)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (f *Fake) GetPostAuthor(_ context.Context, _ string, id model.ID) (string, error) {
	f.record("GetPostAuthor")
	if f.GetPostAuthorErr != nil {
		return "", f.GetPostAuthorErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Posts {
		if p.ID == id {
			return p.AuthorID, nil
		}
	}
	return "", &backend.RemoteFailure{Op: "get post", Status: 404, Err: backend.ErrNotFound}
}

func (f *Fake) DeletePost(_ context.Context, _ string, id model.ID) error {
	f.record("DeletePost")
	if f.DeletePostErr != nil {
		return f.DeletePostErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.Posts {
		if p.ID == id {
			f.Posts = append(f.Posts[:i], f.Posts[i+1:]...)
			return nil
		}
	}
	return &backend.RemoteFailure{Op: "delete post", Status: 404, Err: backend.ErrNotFound}
}
