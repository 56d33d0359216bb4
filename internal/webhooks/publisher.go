package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleetopt/internal/store"
)

// Publisher enqueues run notifications for the worker to deliver.
type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// EmitRun enqueues a run status event to the run's notify URL, if set. Data
// carries the summary fields callers poll for.
func (p *Publisher) EmitRun(ctx context.Context, run store.Run, eventType string, data any) {
	if run.NotifyURL == "" {
		return
	}
	payload := map[string]any{
		"id":    fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type":  eventType,
		"runId": run.ID,
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"data":  data,
	}
	body, _ := json.Marshal(payload)
	_, _ = p.Store.EnqueueWebhook(ctx, run.ID, eventType, run.NotifyURL, run.NotifySecret, body)
}
