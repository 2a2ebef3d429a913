package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		PublicURL string `yaml:"publicURL"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Categories struct {
		TTL string `yaml:"ttl"`
	} `yaml:"categories"`
	Auth struct {
		Disabled          bool   `yaml:"disabled"`
		Secret            string `yaml:"secret"`
		AdminUser         string `yaml:"adminUser"`
		AdminPasswordHash string `yaml:"adminPasswordHash"`
		TokenTTL          string `yaml:"tokenTTL"`
	} `yaml:"auth"`
	Sync struct {
		ServerURL       string `yaml:"serverURL"`
		RefreshInterval string `yaml:"refreshInterval"`
	} `yaml:"sync"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Redis.TTL = "10m"
	cfg.Categories.TTL = "10m"
	cfg.Auth.AdminUser = "admin"
	cfg.Auth.TokenTTL = "12h"
	cfg.Sync.ServerURL = "http://localhost:8080"
	cfg.Sync.RefreshInterval = "30s"
	return cfg
}

// Load reads YAML config from path on top of the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Keys lists the dotted names accepted by Apply.
func Keys() []string {
	keys := make([]string, 0, len(fields(&Config{})))
	for key := range fields(&Config{}) {
		keys = append(keys, key)
	}
	return keys
}

// Apply overrides fields with the values lookup returns, keyed by their dotted YAML path
// (for example "auth.secret").
func (c *Config) Apply(lookup func(key string) (string, bool)) error {
	for key, target := range fields(c) {
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		switch v := target.(type) {
		case *string:
			*v = raw
		case *int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*v = n
		case *bool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*v = b
		}
	}
	return nil
}

func fields(c *Config) map[string]any {
	return map[string]any{
		"server.port":            &c.Server.Port,
		"server.publicURL":       &c.Server.PublicURL,
		"redis.addr":             &c.Redis.Addr,
		"redis.password":         &c.Redis.Password,
		"redis.db":               &c.Redis.DB,
		"redis.ttl":              &c.Redis.TTL,
		"postgres.url":           &c.Postgres.URL,
		"categories.ttl":         &c.Categories.TTL,
		"auth.disabled":          &c.Auth.Disabled,
		"auth.secret":            &c.Auth.Secret,
		"auth.adminUser":         &c.Auth.AdminUser,
		"auth.adminPasswordHash": &c.Auth.AdminPasswordHash,
		"auth.tokenTTL":          &c.Auth.TokenTTL,
		"sync.serverURL":         &c.Sync.ServerURL,
		"sync.refreshInterval":   &c.Sync.RefreshInterval,
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
