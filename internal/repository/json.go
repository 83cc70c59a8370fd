package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ghaggin/feed/internal/config"
	"github.com/ghaggin/feed/internal/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	errTableFileIsDir = errors.New("table file is dir")
)

type Data struct {
	Accounts []Account       `json:"accounts"`
	Profiles []model.Profile `json:"profiles"`
	Posts    []model.Post    `json:"posts"`
}

type jsonRepo struct {
	path string
	log  *zap.Logger

	mu   sync.RWMutex
	data *Data
}

type JSONParams struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Log    *zap.Logger
}

func NewJSON(p JSONParams) (Repository, error) {
	r := openJSON(p.Config.Backend.Local.Path, p.Log)

	p.LC.Append(fx.Hook{
		OnStop: r.stop,
	})

	return r, nil
}

func openJSON(path string, log *zap.Logger) *jsonRepo {
	r := &jsonRepo{
		path: path,
		log:  log,
		data: &Data{},
	}

	err := r.readfile()
	if err != nil {
		// only log, data will be empty and will overwrite when
		// the service is stopped
		r.log.Warn("failed reading json repo data file", zap.String("path", path), zap.Error(err))
	}

	return r
}

func (r *jsonRepo) stop(_ context.Context) error {
	return r.writefile()
}

func (r *jsonRepo) readfile() error {
	finfo, err := os.Stat(r.path)
	if err != nil {
		return err
	}

	if finfo.IsDir() {
		return errTableFileIsDir
	}

	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(&r.data)
}

func (r *jsonRepo) writefile() error {
	r.mu.RLock()
	b, err := json.MarshalIndent(r.data, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(r.path, b, 0o600)
}

func (r *jsonRepo) GetAccountByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.data.Accounts {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}

	return nil, ErrNotFound
}

func (r *jsonRepo) GetAccount(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.data.Accounts {
		if a.ID == id {
			return &a, nil
		}
	}

	return nil, ErrNotFound
}

func (r *jsonRepo) AddAccount(_ context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.data.Accounts {
		if existing.ID == a.ID || strings.EqualFold(existing.Email, a.Email) {
			return ErrConflict
		}
	}

	r.data.Accounts = append(r.data.Accounts, *a)
	return nil
}

func (r *jsonRepo) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.profile(id)
}

func (r *jsonRepo) profile(id string) (*model.Profile, error) {
	for _, p := range r.data.Profiles {
		if p.ID == id {
			return &p, nil
		}
	}

	return nil, ErrNotFound
}

func (r *jsonRepo) AddProfile(_ context.Context, p *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.data.Profiles {
		if existing.ID == p.ID || existing.Username == p.Username {
			return ErrConflict
		}
	}

	r.data.Profiles = append(r.data.Profiles, *p)
	return nil
}

func (r *jsonRepo) GetPost(_ context.Context, id model.ID) (*model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.data.Posts {
		if p.ID == id {
			return &p, nil
		}
	}

	return nil, ErrNotFound
}

func (r *jsonRepo) AddPost(_ context.Context, p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.data.Posts {
		if existing.ID == p.ID {
			return ErrConflict
		}
	}

	stored := *p
	stored.Author = nil
	r.data.Posts = append(r.data.Posts, stored)
	return nil
}

func (r *jsonRepo) ListPosts(_ context.Context) ([]model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]model.Post, 0, len(r.data.Posts))
	for _, p := range r.data.Posts {
		if author, err := r.profile(p.AuthorID); err == nil {
			p.Author = author
		}
		posts = append(posts, p)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	return posts, nil
}

func (r *jsonRepo) DeletePost(_ context.Context, id model.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.data.Posts {
		if p.ID == id {
			r.data.Posts = append(r.data.Posts[:i], r.data.Posts[i+1:]...)
			return nil
		}
	}

	return ErrNotFound
}
