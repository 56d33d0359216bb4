package store

import (
	"encoding/json"
	"time"
)

// Run statuses.
const (
	RunQueued  = "queued"
	RunRunning = "running"
	RunDone    = "done"
	RunFailed  = "failed"
)

// Run is one solve request with its outcome.
type Run struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Problem      json.RawMessage `json:"problem,omitempty"`
	Solution     json.RawMessage `json:"solution,omitempty"`
	Error        string          `json:"error,omitempty"`
	NotifyURL    string          `json:"notifyUrl,omitempty"`
	NotifySecret string          `json:"-"`
	SolvingMs    int64           `json:"solvingMs,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
}

type WebhookDelivery struct {
	ID        string
	RunID     string
	EventType string
	URL       string
	Secret    string
	Payload   []byte
	Status    string
	Attempts  int
}
