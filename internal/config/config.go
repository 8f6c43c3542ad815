package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"

	"Ballot/internal/core/votes"
	"Ballot/internal/db/sqlstore"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment
type Config struct {
	DatabaseDriver   string   `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL      string   `env:"DATABASE_URL,required"`
	VoteTable        string   `env:"VOTE_TABLE" envDefault:"votes"`
	VoteIDStrategy   string   `env:"VOTE_ID_STRATEGY" envDefault:"serial"`
	VoterTypes       []string `env:"VOTER_TYPES" envSeparator:"," envDefault:"users"`
	SubjectTypes     []string `env:"SUBJECT_TYPES,required" envSeparator:","`
	DefaultVoterType string   `env:"DEFAULT_VOTER_TYPE"`
	JWTSecret        string   `env:"JWT_SECRET"`
	Port             int      `env:"APPVIEW_PORT" envDefault:"8081"`
	RateLimit        int      `env:"VOTE_RATE_LIMIT" envDefault:"100"`
	LogLevel         string   `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env files (a missing file is fine) and then parses the
// process environment. Variables already set win over .env values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return parse(env.Options{})
}

// Parse builds a Config from the given variables only, ignoring the process
// environment
func Parse(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.VoterTypes = cleanList(c.VoterTypes)
	c.SubjectTypes = cleanList(c.SubjectTypes)

	if len(c.VoterTypes) == 0 {
		return errors.New("VOTER_TYPES must name at least one type")
	}
	if len(c.SubjectTypes) == 0 {
		return errors.New("SUBJECT_TYPES must name at least one type")
	}

	c.DefaultVoterType = strings.TrimSpace(c.DefaultVoterType)
	if c.DefaultVoterType == "" {
		c.DefaultVoterType = c.VoterTypes[0]
	}
	if !slices.Contains(c.VoterTypes, c.DefaultVoterType) {
		return fmt.Errorf("DEFAULT_VOTER_TYPE %q is not listed in VOTER_TYPES", c.DefaultVoterType)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("APPVIEW_PORT %d out of range", c.Port)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("VOTE_RATE_LIMIT must not be negative, got %d", c.RateLimit)
	}
	return nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" && !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}

// Store returns the storage settings
func (c *Config) Store() sqlstore.Config {
	return sqlstore.Config{
		Driver:     c.DatabaseDriver,
		DSN:        c.DatabaseURL,
		Table:      c.VoteTable,
		IDStrategy: c.VoteIDStrategy,
	}
}

// Registry builds the type registry from VOTER_TYPES and SUBJECT_TYPES
func (c *Config) Registry() (*votes.TypeRegistry, error) {
	registry := votes.NewTypeRegistry()
	if err := registry.RegisterVoters(c.VoterTypes...); err != nil {
		return nil, fmt.Errorf("invalid VOTER_TYPES: %w", err)
	}
	if err := registry.RegisterSubjects(c.SubjectTypes...); err != nil {
		return nil, fmt.Errorf("invalid SUBJECT_TYPES: %w", err)
	}
	return registry, nil
}

// Level maps LOG_LEVEL onto a slog level, defaulting to info
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}
