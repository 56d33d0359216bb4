// Package config loads service configuration from an optional YAML file with
// environment overrides. A .env file is honored in development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        int    `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	Migrate     bool   `yaml:"migrate"`

	Auth  Auth  `yaml:"auth"`
	Rate  Rate  `yaml:"rate"`
	Solve Solve `yaml:"solve"`
}

type Auth struct {
	Mode       string `yaml:"mode"` // dev, hmac or jwks
	HMACSecret string `yaml:"hmac_secret"`
	JWKSURL    string `yaml:"jwks_url"`
}

type Rate struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Solve holds server-side solver defaults; requests may lower but not raise
// them.
type Solve struct {
	Threads          int           `yaml:"threads"`
	ExplorationLevel int           `yaml:"exploration_level"`
	TimeLimit        time.Duration `yaml:"time_limit"`
}

// UnmarshalYAML accepts "10s" style durations and leaves omitted fields at
// their current values.
func (s *Solve) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		Threads          int    `yaml:"threads"`
		ExplorationLevel *int   `yaml:"exploration_level"`
		TimeLimit        string `yaml:"time_limit"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	if raw.Threads > 0 {
		s.Threads = raw.Threads
	}
	if raw.ExplorationLevel != nil {
		s.ExplorationLevel = *raw.ExplorationLevel
	}
	if raw.TimeLimit != "" {
		d, err := time.ParseDuration(raw.TimeLimit)
		if err != nil {
			return err
		}
		s.TimeLimit = d
	}
	return nil
}

func Default() Config {
	return Config{
		Port:    8080,
		Migrate: true,
		Auth:    Auth{Mode: "dev"},
		Rate:    Rate{RPS: 50, Burst: 100},
		Solve:   Solve{Threads: 4, ExplorationLevel: 2, TimeLimit: 10 * time.Second},
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. Path may be empty.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, err
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("DB_MIGRATE"); v != "" {
		cfg.Migrate = v != "false"
	}
	if v := os.Getenv("AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}
	if v := os.Getenv("AUTH_HMAC_SECRET"); v != "" {
		cfg.Auth.HMACSecret = v
	}
	if v := os.Getenv("AUTH_JWKS_URL"); v != "" {
		cfg.Auth.JWKSURL = v
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Rate.RPS = f
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Rate.Burst = n
		}
	}
	if v := os.Getenv("SOLVE_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Solve.Threads = n
		}
	}
	if v := os.Getenv("SOLVE_EXPLORATION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solve.ExplorationLevel = n
		}
	}
	if v := os.Getenv("SOLVE_TIME_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Solve.TimeLimit = d
		}
	}
	return cfg, nil
}
