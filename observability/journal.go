// CLAUDE:SUMMARY Async SQLite journal of analyze/generate/build runs: batched inserts, recent-run queries, retention cleanup.
// Package observability records every deckforge run (template analysis,
// generation, direct build) in a SQLite journal.
//
// Persistence is async and non-blocking: a full buffer falls back to a
// synchronous insert, and insert failures are logged, never returned to the
// request that produced the run. A nil *Journal is valid and records nothing.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/deckforge/dbopen"
	"github.com/hazyhaar/deckforge/idgen"
)

// Run kinds.
const (
	KindAnalyze  = "analyze"
	KindGenerate = "generate"
	KindBuild    = "build"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one journal row.
type Run struct {
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	Kind        string    `json:"kind"`
	RequestID   string    `json:"request_id,omitempty"`
	Transport   string    `json:"transport,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model,omitempty"`
	Slides      int       `json:"slide_count"`
	Layouts     int       `json:"layout_count"`
	InputBytes  int64     `json:"input_bytes"`
	OutputBytes int64     `json:"output_bytes"`
	DurationMs  int64     `json:"duration_ms"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// Filter narrows Recent. Zero fields match everything.
type Filter struct {
	Kind   string
	Status string
	Limit  int // default 50, max 500
}

// Config configures a Journal.
type Config struct {
	Buffer        int           // queued runs before sync fallback. Default: 256.
	BatchSize     int           // runs per transaction. Default: 64.
	FlushInterval time.Duration // Default: 2s.
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Journal persists runs to the deck_runs table.
type Journal struct {
	db     *sql.DB
	cfg    Config
	newID  idgen.Generator
	ch     chan *Run
	stop   chan struct{}
	done   chan struct{}
	closed sync.Once

	// mu orders enqueues before Close: Record holds it shared while sending,
	// Close takes it exclusively to mark the journal stopped.
	mu      sync.RWMutex
	stopped bool
}

// NewJournal starts the flush goroutine. Close drains it.
func NewJournal(db *sql.DB, cfg Config) *Journal {
	cfg.defaults()
	j := &Journal{
		db:    db,
		cfg:   cfg,
		newID: idgen.Run,
		ch:    make(chan *Run, cfg.Buffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go j.flushLoop()
	return j
}

// Record queues r. Missing RunID, CreatedAt and Status are filled in; the
// assigned run id is returned.
func (j *Journal) Record(r *Run) string {
	if j == nil || r == nil {
		return ""
	}
	j.fillDefaults(r)
	if j.enqueue(r) {
		return r.RunID
	}
	j.insertLogged(r)
	return r.RunID
}

// enqueue hands r to the flush loop. It reports false when the journal is
// closed or the buffer is full; the caller then inserts synchronously.
func (j *Journal) enqueue(r *Run) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.stopped {
		return false
	}
	select {
	case j.ch <- r:
		return true
	default:
		j.cfg.Logger.Warn("journal: buffer full, sync fallback", "kind", r.Kind)
		return false
	}
}

// Recent returns the latest runs, newest first.
func (j *Journal) Recent(ctx context.Context, f Filter) ([]Run, error) {
	if j == nil {
		return []Run{}, nil
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	q := `SELECT run_id, created_at, kind, request_id, transport, provider, model,
		slide_count, layout_count, input_bytes, output_bytes, duration_ms, status, error
		FROM deck_runs WHERE 1=1`
	var args []any
	if f.Kind != "" {
		q += " AND kind = ?"
		args = append(args, f.Kind)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	q += " ORDER BY created_at DESC, run_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var created int64
		var reqID, transport, provider, model, errMsg sql.NullString
		if err := rows.Scan(&r.RunID, &created, &r.Kind, &reqID, &transport, &provider, &model,
			&r.Slides, &r.Layouts, &r.InputBytes, &r.OutputBytes, &r.DurationMs, &r.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		r.RequestID = reqID.String
		r.Transport = transport.String
		r.Provider = provider.String
		r.Model = model.String
		r.Error = errMsg.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Cleanup deletes runs older than retentionDays. Zero or negative keeps everything.
func (j *Journal) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if j == nil || retentionDays <= 0 {
		return 0, nil
	}
	threshold := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	res, err := dbopen.Exec(ctx, j.db, `DELETE FROM deck_runs WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("journal: cleanup: %w", err)
	}
	return res.RowsAffected()
}

// StartCleanup runs Cleanup now and then every interval until ctx is done.
func (j *Journal) StartCleanup(ctx context.Context, retentionDays int, interval time.Duration) {
	if j == nil || retentionDays <= 0 {
		return
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			n, err := j.Cleanup(ctx, retentionDays)
			if err != nil && ctx.Err() == nil {
				j.cfg.Logger.Warn("journal: cleanup failed", "error", err)
			} else if n > 0 {
				j.cfg.Logger.Info("journal: expired runs removed", "count", n)
			}
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
			}
		}
	}()
}

// Close drains queued runs and stops the flush goroutine. Safe to call twice.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.closed.Do(func() {
		j.mu.Lock()
		j.stopped = true
		close(j.stop)
		j.mu.Unlock()
		<-j.done
	})
	return nil
}

func (j *Journal) fillDefaults(r *Run) {
	if r.RunID == "" {
		r.RunID = j.newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Status == "" {
		if r.Error != "" {
			r.Status = StatusError
		} else {
			r.Status = StatusOK
		}
	}
}

func (j *Journal) flushLoop() {
	defer close(j.done)
	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()
	batch := make([]*Run, 0, j.cfg.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := j.insertBatch(batch); err != nil {
			j.cfg.Logger.Error("journal: flush failed", "error", err, "runs", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-j.stop:
			for {
				select {
				case r := <-j.ch:
					batch = append(batch, r)
				default:
					flush()
					return
				}
			}
		case r := <-j.ch:
			batch = append(batch, r)
			if len(batch) >= j.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

const insertRun = `INSERT OR REPLACE INTO deck_runs
	(run_id, created_at, kind, request_id, transport, provider, model,
	 slide_count, layout_count, input_bytes, output_bytes, duration_ms, status, error)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

func runArgs(r *Run) []any {
	return []any{
		r.RunID, r.CreatedAt.UnixMilli(), r.Kind, r.RequestID, r.Transport, r.Provider, r.Model,
		r.Slides, r.Layouts, r.InputBytes, r.OutputBytes, r.DurationMs, r.Status, r.Error,
	}
}

func (j *Journal) insertBatch(batch []*Run) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertRun)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, runArgs(r)...); err != nil {
			j.cfg.Logger.Error("journal: insert", "error", err, "run_id", r.RunID)
		}
	}
	return tx.Commit()
}

func (j *Journal) insertLogged(r *Run) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := dbopen.Exec(ctx, j.db, insertRun, runArgs(r)...); err != nil {
		j.cfg.Logger.Error("journal: sync insert", "error", err, "run_id", r.RunID)
	}
}
