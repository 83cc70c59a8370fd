package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	BackendREST  = "rest"
	BackendLocal = "local"
)

var (
	errUnknownBackend = errors.New("unknown backend kind")
	errMissingURL     = errors.New("backend url is required for the rest backend")
	errMissingSecret  = errors.New("token secret is required for the local backend")
)

type Config struct {
	Server  Server  `yaml:"server"`
	Backend Backend `yaml:"backend"`
	Session Session `yaml:"session"`
	Log     Log     `yaml:"log"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Backend struct {
	// Kind selects the backend implementation, rest or local.
	Kind    string        `yaml:"kind"`
	URL     string        `yaml:"url"`
	AnonKey string        `yaml:"anon_key"`
	Timeout time.Duration `yaml:"timeout"`
	Tables  Tables        `yaml:"tables"`
	Local   Local         `yaml:"local"`
}

type Tables struct {
	Profiles string `yaml:"profiles"`
	Posts    string `yaml:"posts"`
}

// Local configures the in-process development backend.
type Local struct {
	Path          string        `yaml:"path"`
	TokenSecret   string        `yaml:"token_secret"`
	TokenLifetime time.Duration `yaml:"token_lifetime"`
}

type Session struct {
	Lifetime   time.Duration `yaml:"lifetime"`
	CookieName string        `yaml:"cookie_name"`
	Secure     bool          `yaml:"secure"`
}

type Log struct {
	Development bool `yaml:"development"`
}

// Flags are command line overrides. Zero values leave the loaded
// configuration untouched.
type Flags struct {
	Path    string
	Backend string
	Port    int
}

func Default() *Config {
	return &Config{
		Server: Server{
			Host: "localhost",
			Port: 8123,
		},
		Backend: Backend{
			Kind:    BackendREST,
			Timeout: 10 * time.Second,
			Tables: Tables{
				Profiles: "profiles",
				Posts:    "tweets",
			},
			Local: Local{
				Path:          "data/feed.json",
				TokenLifetime: time.Hour,
			},
		},
		Session: Session{
			Lifetime:   24 * time.Hour,
			CookieName: "feed_session",
		},
		Log: Log{
			Development: true,
		},
	}
}

func New(f Flags) (*Config, error) {
	path := f.Path
	if path == "" {
		path = defaultPath
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if f.Backend != "" {
		c.Backend.Kind = f.Backend
	}
	if f.Port != 0 {
		c.Server.Port = f.Port
	}

	return c, c.Validate()
}

func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendREST:
		if c.Backend.URL == "" {
			return errMissingURL
		}
	case BackendLocal:
		if c.Backend.Local.TokenSecret == "" {
			return errMissingSecret
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownBackend, c.Backend.Kind)
	}
	return nil
}
