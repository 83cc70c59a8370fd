package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const defaultPath = "./config/config.yaml"

const (
	envBackendURL  = "FEED_BACKEND_URL"
	envBackendKey  = "FEED_BACKEND_KEY"
	envTokenSecret = "FEED_TOKEN_SECRET"
	envPort        = "FEED_PORT"
)

// Load reads the yaml file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()

	filename, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(yamlFile, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(envBackendURL); ok {
		c.Backend.URL = v
	}
	if v, ok := lookup(envBackendKey); ok {
		c.Backend.AnonKey = v
	}
	if v, ok := lookup(envTokenSecret); ok {
		c.Backend.Local.TokenSecret = v
	}
	if v, ok := lookup(envPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envPort, err)
		}
		c.Server.Port = port
	}
	return nil
}
