package api

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"fleetopt/internal/auth"
	"fleetopt/internal/config"
	"fleetopt/internal/store"
	"fleetopt/internal/webhooks"
)

type Server struct {
	Cfg    config.Config
	Store  store.Store
	Pub    *webhooks.Publisher
	Auth   *auth.Verifier
	Broker EventBroker

	limiter *rate.Limiter
}

// NewServer wires the store, broker and auth from config. Without a
// DATABASE_URL it runs on the in-memory store.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := sp.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = sp
	}

	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	return &Server{
		Cfg:     cfg,
		Store:   s,
		Pub:     webhooks.NewPublisher(s),
		Auth:    auth.NewVerifier(cfg.Auth.Mode, cfg.Auth.HMACSecret, cfg.Auth.JWKSURL),
		Broker:  broker,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate.RPS), cfg.Rate.Burst),
	}, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
