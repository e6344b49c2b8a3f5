package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Elarafi-trade/pair-agentverse/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// storeTimeout bounds every round trip to the backing store so a slow or
// unreachable database degrades to a miss instead of stalling requests.
const storeTimeout = 5 * time.Second

// SQLCache persists analysis results in a SQL database. The backend is
// chosen from the URL: postgres:// / postgresql:// use pgx, anything else
// is treated as a SQLite file path.
type SQLCache struct {
	db     *sql.DB
	driver string
	ttl    time.Duration
	mu     sync.Mutex
	now    func() time.Time
}

// Open connects to the backing store and runs migrations.
func Open(databaseURL string, ttl time.Duration) (*SQLCache, error) {
	driver := "sqlite"
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		driver = "pgx"
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	if driver == "sqlite" {
		// WAL mode for concurrent reads while the service writes.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	c := &SQLCache{db: db, driver: driver, ttl: ttl, now: time.Now}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] cache store opened (driver=%s, ttl=%s)", driver, ttl)
	return c, nil
}

func (c *SQLCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_cache (
			pair_key      TEXT PRIMARY KEY,
			symbol_a      TEXT NOT NULL,
			symbol_b      TEXT NOT NULL,
			metrics_json  TEXT NOT NULL,
			analysis_json TEXT NOT NULL,
			created_at    BIGINT NOT NULL,
			expires_at    BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_expires ON analysis_cache(expires_at)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for the pgx driver.
func (c *SQLCache) rebind(query string) string {
	if c.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Get returns the stored entry for pairKey if present and still fresh.
// Stale rows are reported as a miss and left for the next Put to overwrite.
func (c *SQLCache) Get(ctx context.Context, pairKey string) (*Entry, bool) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	row := c.db.QueryRowContext(ctx, c.rebind(
		`SELECT symbol_a, symbol_b, metrics_json, analysis_json, created_at, expires_at
		 FROM analysis_cache WHERE pair_key = ?`), pairKey)

	var (
		symbolA, symbolB          string
		metricsJSON, analysisJSON string
		createdUnix, expiresUnix  int64
	)
	if err := row.Scan(&symbolA, &symbolB, &metricsJSON, &analysisJSON, &createdUnix, &expiresUnix); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("[WARN] cache get %s failed, treating as miss: %v", pairKey, err)
		}
		return nil, false
	}

	computedAt := time.Unix(createdUnix, 0).UTC()
	if !Fresh(c.now().UTC(), computedAt, c.ttl) {
		return nil, false
	}

	var metrics model.Metrics
	if err := json.Unmarshal([]byte(metricsJSON), &metrics); err != nil {
		log.Printf("[WARN] cache get %s: decode metrics: %v", pairKey, err)
		return nil, false
	}
	var analysis model.Analysis
	if err := json.Unmarshal([]byte(analysisJSON), &analysis); err != nil {
		log.Printf("[WARN] cache get %s: decode analysis: %v", pairKey, err)
		return nil, false
	}

	return &Entry{
		PairKey:    pairKey,
		SymbolA:    symbolA,
		SymbolB:    symbolB,
		Metrics:    &metrics,
		Analysis:   &analysis,
		ComputedAt: computedAt,
		ExpiresAt:  time.Unix(expiresUnix, 0).UTC(),
	}, true
}

// Put stores or overwrites the entry for its pair key. The upsert is a
// single statement, so concurrent writers for the same key resolve to
// last-write-wins with no partial overwrite. Errors are logged and the
// write is dropped.
func (c *SQLCache) Put(ctx context.Context, e *Entry) {
	metricsJSON, err := json.Marshal(e.Metrics)
	if err != nil {
		log.Printf("[WARN] cache put %s: encode metrics: %v", e.PairKey, err)
		return
	}
	analysisJSON, err := json.Marshal(e.Analysis)
	if err != nil {
		log.Printf("[WARN] cache put %s: encode analysis: %v", e.PairKey, err)
		return
	}

	computedAt := e.ComputedAt
	if computedAt.IsZero() {
		computedAt = c.now().UTC()
	}
	expiresAt := computedAt.Add(c.ttl)

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx, c.rebind(
		`INSERT INTO analysis_cache
			(pair_key, symbol_a, symbol_b, metrics_json, analysis_json, created_at, expires_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT (pair_key) DO UPDATE SET
			symbol_a = excluded.symbol_a,
			symbol_b = excluded.symbol_b,
			metrics_json = excluded.metrics_json,
			analysis_json = excluded.analysis_json,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`),
		e.PairKey, e.SymbolA, e.SymbolB, string(metricsJSON), string(analysisJSON),
		computedAt.Unix(), expiresAt.Unix(),
	)
	if err != nil {
		log.Printf("[WARN] cache put %s failed, dropping write: %v", e.PairKey, err)
	}
}

// CleanupExpired deletes rows whose expiry has passed. This is storage
// hygiene only: Get already treats stale rows as absent.
func (c *SQLCache) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.db.ExecContext(ctx, c.rebind(
		`DELETE FROM analysis_cache WHERE expires_at <= ?`), c.now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup expired: %w", err)
	}
	return deleted, nil
}

// Stats counts total, valid, and expired entries.
func (c *SQLCache) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	row := c.db.QueryRowContext(ctx, c.rebind(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0)
		 FROM analysis_cache`), c.now().UTC().Unix())

	var total, valid int64
	if err := row.Scan(&total, &valid); err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	return &Stats{
		TotalEntries:   total,
		ValidEntries:   valid,
		ExpiredEntries: total - valid,
	}, nil
}

func (c *SQLCache) Enabled() bool { return true }

func (c *SQLCache) Close() error {
	log.Println("[INFO] closing cache store")
	return c.db.Close()
}
