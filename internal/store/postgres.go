package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is the production Store, backed by pgx through database/sql.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS solve_runs (
		id uuid PRIMARY KEY,
		status text NOT NULL,
		problem jsonb NOT NULL,
		solution jsonb,
		error text NOT NULL DEFAULT '',
		notify_url text NOT NULL DEFAULT '',
		notify_secret text NOT NULL DEFAULT '',
		solving_ms bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL DEFAULT now(),
		completed_at timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS solve_runs_status_idx ON solve_runs (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS webhook_deliveries (
		id uuid PRIMARY KEY,
		run_id uuid NOT NULL,
		event_type text NOT NULL,
		url text NOT NULL,
		secret text NOT NULL DEFAULT '',
		payload bytea NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		attempts int NOT NULL DEFAULT 0,
		next_attempt_at timestamptz NOT NULL DEFAULT now(),
		last_error text NOT NULL DEFAULT '',
		response_code int NOT NULL DEFAULT 0,
		latency_ms int NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS webhook_deliveries_due_idx ON webhook_deliveries (status, next_attempt_at)`,
}

// Migrate creates the tables when missing. Dev helper; production deploys
// run migrations out of band.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) CreateRun(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = RunQueued
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO solve_runs (id, status, problem, notify_url, notify_secret) VALUES ($1,$2,$3,$4,$5)`,
		run.ID, run.Status, []byte(run.Problem), run.NotifyURL, run.NotifySecret)
	return err
}

func (p *Postgres) StartRun(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE solve_runs SET status=$1 WHERE id=$2`, RunRunning, id)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

func (p *Postgres) CompleteRun(ctx context.Context, id, status string, solution []byte, errMsg string, solvingMs int64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE solve_runs SET status=$1, solution=$2, error=$3, solving_ms=$4, completed_at=now() WHERE id=$5`,
		status, solution, errMsg, solvingMs, id)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

func (p *Postgres) GetRun(ctx context.Context, id string) (Run, error) {
	var run Run
	var solution []byte
	var completed sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, status, problem, solution, error, notify_url, notify_secret, solving_ms, created_at, completed_at
		 FROM solve_runs WHERE id=$1`, id).
		Scan(&run.ID, &run.Status, (*[]byte)(&run.Problem), &solution, &run.Error,
			&run.NotifyURL, &run.NotifySecret, &run.SolvingMs, &run.CreatedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	run.Solution = solution
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	return run, nil
}

func (p *Postgres) ListRuns(ctx context.Context, status, cursor string, limit int) ([]Run, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	// Cursor is the last seen run id; ordering is (created_at, id).
	q := `SELECT id::text, status, error, notify_url, solving_ms, created_at, completed_at FROM solve_runs`
	args := []any{}
	where := ``
	if status != "" {
		args = append(args, status)
		where = ` WHERE status=$1`
	}
	if cursor != "" {
		args = append(args, cursor)
		cl := ` (created_at, id) > (SELECT created_at, id FROM solve_runs WHERE id=$` + strconv.Itoa(len(args)) + `)`
		if where == "" {
			where = ` WHERE` + cl
		} else {
			where += ` AND` + cl
		}
	}
	args = append(args, limit)
	q += where + ` ORDER BY created_at, id LIMIT $` + strconv.Itoa(len(args))

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var run Run
		var completed sql.NullTime
		if err := rows.Scan(&run.ID, &run.Status, &run.Error, &run.NotifyURL, &run.SolvingMs, &run.CreatedAt, &completed); err != nil {
			return nil, "", err
		}
		if completed.Valid {
			t := completed.Time
			run.CompletedAt = &t
		}
		out = append(out, run)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, run_id, event_type, url, secret, payload) VALUES ($1,$2,$3,$4,$5,$6)`,
		id, runID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, run_id::text, event_type, url, secret, payload, status, attempts
		 FROM webhook_deliveries
		 WHERE status='pending' AND next_attempt_at <= now()
		 ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.RunID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	status := "pending"
	if success {
		status = "delivered"
	}
	var next any
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries
		 SET status=$1, attempts=attempts+1, next_attempt_at=COALESCE($2, next_attempt_at),
		     last_error=$3, response_code=$4, latency_ms=$5
		 WHERE id=$6`,
		status, next, lastError, responseCode, latencyMs, id)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries
		 SET status='failed', attempts=attempts+1, last_error=$1, response_code=$2, latency_ms=$3
		 WHERE id=$4`,
		lastError, responseCode, latencyMs, id)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func errIfNoRows(res sql.Result) error {
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

