package shield

import (
	"context"
	"database/sql"
	"fmt"
)

const defaultMaintenanceMessage = "Service under maintenance, please retry later."

// Schema defines the SQLite tables used by shield middlewares:
//   - rate_limits: per-endpoint rate limiting rules (used by RateLimiter)
//   - maintenance: global maintenance mode flag (used by MaintenanceMode)
//
// All statements are idempotent; pass it to dbopen.WithSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS rate_limits (
    endpoint       TEXT PRIMARY KEY,
    max_requests   INTEGER NOT NULL DEFAULT 60,
    window_seconds INTEGER NOT NULL DEFAULT 60,
    enabled        INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS maintenance (
    id      INTEGER PRIMARY KEY CHECK (id = 1),
    active  INTEGER NOT NULL DEFAULT 0,
    message TEXT NOT NULL DEFAULT 'Service under maintenance, please retry later.'
);

INSERT OR IGNORE INTO maintenance (id, active, message)
VALUES (1, 0, 'Service under maintenance, please retry later.');
`

// Rule is one rate-limit rule keyed by "METHOD /path".
type Rule struct {
	Endpoint      string `yaml:"endpoint" json:"endpoint"`
	MaxRequests   int    `yaml:"max_requests" json:"max_requests"`
	WindowSeconds int    `yaml:"window_seconds" json:"window_seconds"`
}

// SeedRules upserts rules into rate_limits. Existing rows for other
// endpoints are left alone so operators can add rules by hand.
func SeedRules(ctx context.Context, db *sql.DB, rules []Rule) error {
	for _, r := range rules {
		if r.Endpoint == "" || r.MaxRequests <= 0 || r.WindowSeconds <= 0 {
			return fmt.Errorf("shield: invalid rate limit rule %+v", r)
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO rate_limits (endpoint, max_requests, window_seconds, enabled)
			VALUES (?, ?, ?, 1)
			ON CONFLICT(endpoint) DO UPDATE SET
				max_requests = excluded.max_requests,
				window_seconds = excluded.window_seconds`,
			r.Endpoint, r.MaxRequests, r.WindowSeconds)
		if err != nil {
			return fmt.Errorf("shield: seed %s: %w", r.Endpoint, err)
		}
	}
	return nil
}

// SetMaintenance toggles the maintenance flag. An empty message keeps the current one.
func SetMaintenance(ctx context.Context, db *sql.DB, active bool, message string) error {
	flag := 0
	if active {
		flag = 1
	}
	_, err := db.ExecContext(ctx, `
		UPDATE maintenance SET active = ?, message = COALESCE(NULLIF(?, ''), message) WHERE id = 1`,
		flag, message)
	return err
}
