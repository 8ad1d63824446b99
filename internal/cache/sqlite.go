package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Store is a provider payload cache backed by modernc.org/sqlite.
// Successful lookups and confirmed no-match responses are cached;
// transport failures are never written, so a flaky provider call is
// retried on the next run instead of poisoning the cache.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// Open opens the cache database at the given path and configures WAL mode.
func Open(dsn string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	s := &Store{db: db, ttl: ttl}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS payloads (
	source     TEXT NOT NULL,
	key        TEXT NOT NULL,
	miss       INTEGER NOT NULL DEFAULT 0,
	payload    TEXT,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL,
	PRIMARY KEY (source, key)
);

CREATE TABLE IF NOT EXISTS fetch_audit (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	key        TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_payloads_expires_at ON payloads(expires_at);
CREATE INDEX IF NOT EXISTS idx_fetch_audit_source ON fetch_audit(source);
`

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "cache: migrate")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached payload for a source/key pair. The second return
// reports whether a live entry was found; a cached no-match entry returns
// ("", true, nil).
func (s *Store) Get(ctx context.Context, source, key string) (string, bool, error) {
	var payload sql.NullString
	var miss bool
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, miss FROM payloads WHERE source = ? AND key = ? AND expires_at > ?`,
		source, key, time.Now().UTC(),
	).Scan(&payload, &miss)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "cache: get %s/%s", source, key)
	}
	if miss {
		return "", true, nil
	}
	return payload.String, true, nil
}

// Put stores a successful payload for a source/key pair.
func (s *Store) Put(ctx context.Context, source, key, payload string) error {
	return s.upsert(ctx, source, key, payload, false, "hit")
}

// PutMiss records a confirmed no-match response so the provider is not
// queried again until the entry expires.
func (s *Store) PutMiss(ctx context.Context, source, key string) error {
	return s.upsert(ctx, source, key, "", true, "miss")
}

func (s *Store) upsert(ctx context.Context, source, key, payload string, miss bool, outcome string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payloads (source, key, miss, payload, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source, key) DO UPDATE SET
		   miss = excluded.miss,
		   payload = excluded.payload,
		   fetched_at = excluded.fetched_at,
		   expires_at = excluded.expires_at`,
		source, key, miss, payload, now, now.Add(s.ttl),
	)
	if err != nil {
		return eris.Wrapf(err, "cache: put %s/%s", source, key)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fetch_audit (id, source, key, outcome, fetched_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), source, key, outcome, now,
	)
	return eris.Wrapf(err, "cache: audit %s/%s", source, key)
}

// Purge removes expired entries and returns how many were deleted.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM payloads WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "cache: purge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "cache: purge rows affected")
	}
	return n, nil
}
