// Package db persists usage snapshots and web accounts in a local SQLite
// database.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	return &DB{sql: conn}, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) Migrate() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}

	_, err = d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS usage_snapshots (
			id                   INTEGER PRIMARY KEY,
			ts_ms                INTEGER NOT NULL,
			context_used_tokens  INTEGER,
			context_limit_tokens INTEGER,
			five_hour_util       REAL,
			five_hour_window     INTEGER,
			five_hour_resets_ms  INTEGER,
			seven_day_util       REAL,
			seven_day_window     INTEGER,
			seven_day_resets_ms  INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("create usage_snapshots: %w", err)
	}

	if _, err := d.sql.Exec(`CREATE INDEX IF NOT EXISTS idx_usage_snapshots_ts ON usage_snapshots(ts_ms DESC)`); err != nil {
		return fmt.Errorf("index usage_snapshots: %w", err)
	}

	_, err = d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create accounts: %w", err)
	}

	_, err = d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			token      TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create refresh_tokens: %w", err)
	}

	return nil
}

func (d *DB) InsertUsageSnapshot(u UsageSnapshot) error {
	_, err := d.sql.Exec(`
		INSERT INTO usage_snapshots (
			ts_ms, context_used_tokens, context_limit_tokens,
			five_hour_util, five_hour_window, five_hour_resets_ms,
			seven_day_util, seven_day_window, seven_day_resets_ms
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		u.TsMs, u.ContextUsedTokens, u.ContextLimitTokens,
		u.FiveHourUtil, u.FiveHourWindow, u.FiveHourResetsMs,
		u.SevenDayUtil, u.SevenDayWindow, u.SevenDayResetsMs,
	)
	return err
}

// GetLatestUsageSnapshot returns the most recent snapshot, or nil when the
// table is empty.
func (d *DB) GetLatestUsageSnapshot() (*UsageSnapshot, error) {
	row := d.sql.QueryRow(`
		SELECT id, ts_ms, context_used_tokens, context_limit_tokens,
			five_hour_util, five_hour_window, five_hour_resets_ms,
			seven_day_util, seven_day_window, seven_day_resets_ms
		FROM usage_snapshots ORDER BY ts_ms DESC, id DESC LIMIT 1`)
	u, err := scanUsageSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// ListUsageSnapshots returns up to limit snapshots newest first.
func (d *DB) ListUsageSnapshots(limit int) ([]UsageSnapshot, error) {
	rows, err := d.sql.Query(`
		SELECT id, ts_ms, context_used_tokens, context_limit_tokens,
			five_hour_util, five_hour_window, five_hour_resets_ms,
			seven_day_util, seven_day_window, seven_day_resets_ms
		FROM usage_snapshots ORDER BY ts_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var snaps []UsageSnapshot
	for rows.Next() {
		u, err := scanUsageSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *u)
	}
	return snaps, rows.Err()
}

// PruneUsageSnapshots deletes snapshots older than the cutoff.
func (d *DB) PruneUsageSnapshots(before time.Time) error {
	_, err := d.sql.Exec("DELETE FROM usage_snapshots WHERE ts_ms < ?", before.UnixMilli())
	return err
}

// rowScanner is implemented by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsageSnapshot(row rowScanner) (*UsageSnapshot, error) {
	var u UsageSnapshot
	var ctxUsed, ctxLimit, fiveResets, sevenResets sql.NullInt64
	var fiveWindow, sevenWindow sql.NullInt64
	var fiveUtil, sevenUtil sql.NullFloat64
	err := row.Scan(
		&u.ID, &u.TsMs, &ctxUsed, &ctxLimit,
		&fiveUtil, &fiveWindow, &fiveResets,
		&sevenUtil, &sevenWindow, &sevenResets,
	)
	if err != nil {
		return nil, err
	}
	u.ContextUsedTokens = nullInt64(ctxUsed)
	u.ContextLimitTokens = nullInt64(ctxLimit)
	u.FiveHourUtil = nullFloat(fiveUtil)
	u.FiveHourWindow = nullInt(fiveWindow)
	u.FiveHourResetsMs = nullInt64(fiveResets)
	u.SevenDayUtil = nullFloat(sevenUtil)
	u.SevenDayWindow = nullInt(sevenWindow)
	u.SevenDayResetsMs = nullInt64(sevenResets)
	return &u, nil
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (d *DB) CreateAccount(username, passwordHash string) (*Account, error) {
	a := &Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	_, err := d.sql.Exec(
		"INSERT INTO accounts (id, username, password_hash, created_at) VALUES (?,?,?,?)",
		a.ID, a.Username, a.PasswordHash, a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAccountByUsername returns nil when no such account exists.
func (d *DB) GetAccountByUsername(username string) (*Account, error) {
	row := d.sql.QueryRow(
		"SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?", username)
	var a Account
	var createdAt int64
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = time.UnixMilli(createdAt)
	return &a, nil
}

func (d *DB) UpdateAccountPassword(username, passwordHash string) error {
	res, err := d.sql.Exec("UPDATE accounts SET password_hash = ? WHERE username = ?", passwordHash, username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no such account: %s", username)
	}
	return nil
}

func (d *DB) HasAnyAccount() (bool, error) {
	var count int
	err := d.sql.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count)
	return count > 0, err
}

func (d *DB) SaveRefreshToken(t RefreshToken) error {
	_, err := d.sql.Exec(
		"INSERT INTO refresh_tokens (token, account_id, expires_at, created_at) VALUES (?,?,?,?)",
		t.Token, t.AccountID, t.ExpiresAt.UnixMilli(), t.CreatedAt.UnixMilli(),
	)
	return err
}

// GetRefreshToken returns nil for unknown tokens.
func (d *DB) GetRefreshToken(token string) (*RefreshToken, error) {
	row := d.sql.QueryRow(
		"SELECT token, account_id, expires_at, created_at FROM refresh_tokens WHERE token = ?", token)
	var t RefreshToken
	var expiresAt, createdAt int64
	err := row.Scan(&t.Token, &t.AccountID, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.ExpiresAt = time.UnixMilli(expiresAt)
	t.CreatedAt = time.UnixMilli(createdAt)
	return &t, nil
}

func (d *DB) DeleteRefreshToken(token string) error {
	_, err := d.sql.Exec("DELETE FROM refresh_tokens WHERE token = ?", token)
	return err
}

func (d *DB) DeleteExpiredRefreshTokens(now time.Time) error {
	_, err := d.sql.Exec("DELETE FROM refresh_tokens WHERE expires_at < ?", now.UnixMilli())
	return err
}

func (d *DB) SetMeta(key, value string) error {
	_, err := d.sql.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES (?,?)", key, value)
	return err
}

func (d *DB) GetMeta(key string) (string, error) {
	var value string
	err := d.sql.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
