package store

import (
	"context"
	"errors"
	"time"
)

// Store is the persistence interface used by the API server and the webhook
// worker.
type Store interface {
	// Solve runs
	CreateRun(ctx context.Context, run Run) error
	StartRun(ctx context.Context, id string) error
	CompleteRun(ctx context.Context, id, status string, solution []byte, errMsg string, solvingMs int64) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, status, cursor string, limit int) ([]Run, string, error)

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")
