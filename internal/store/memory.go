package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the in-memory Store used when no DATABASE_URL is set and in
// tests.
type Memory struct {
	mu         sync.Mutex
	runs       map[string]Run
	deliveries map[string]*memDelivery
}

type memDelivery struct {
	WebhookDelivery
	nextAttemptAt time.Time
	lastError     string
	responseCode  int
}

func NewMemory() *Memory {
	return &Memory{
		runs:       map[string]Run{},
		deliveries: map[string]*memDelivery{},
	}
}

func (m *Memory) CreateRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunQueued
	}
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) StartRun(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return ErrNotFound
	}
	run.Status = RunRunning
	m.runs[id] = run
	return nil
}

func (m *Memory) CompleteRun(_ context.Context, id, status string, solution []byte, errMsg string, solvingMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	run.Status = status
	run.Solution = solution
	run.Error = errMsg
	run.SolvingMs = solvingMs
	run.CompletedAt = &now
	m.runs[id] = run
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (m *Memory) ListRuns(_ context.Context, status, cursor string, limit int) ([]Run, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	m.mu.Lock()
	all := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		if status != "" && r.Status != status {
			continue
		}
		all = append(all, r)
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	start := 0
	if cursor != "" {
		for i, r := range all {
			if r.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	out := all[start:end]
	next := ""
	if end < len(all) && len(out) > 0 {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (m *Memory) EnqueueWebhook(_ context.Context, runID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID:        id,
			RunID:     runID,
			EventType: eventType,
			URL:       url,
			Secret:    secret,
			Payload:   payload,
			Status:    "pending",
		},
		nextAttemptAt: time.Now().UTC(),
	}
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(_ context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	out := []WebhookDelivery{}
	for _, d := range m.deliveries {
		if d.Status == "pending" && !d.nextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(_ context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.lastError = lastError
	d.responseCode = responseCode
	if success {
		d.Status = "delivered"
	} else if nextAttemptAt != nil {
		d.nextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(_ context.Context, id string, lastError string, responseCode int, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.lastError = lastError
	d.responseCode = responseCode
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
