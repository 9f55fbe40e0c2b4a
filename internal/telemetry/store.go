package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store persists query metrics to a local SQLite database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the telemetry database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	-- Daily query totals
	CREATE TABLE IF NOT EXISTS query_totals (
		date TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);

	-- Top query terms (cumulative frequency)
	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	-- Zero-result queries (kept for query tuning)
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Latency histogram per day
	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// SaveSnapshot upserts one metrics snapshot under the given date,
// all within a single transaction.
func (s *Store) SaveSnapshot(date string, snap Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if snap.TotalQueries > 0 {
		_, err = tx.Exec(`
			INSERT INTO query_totals (date, count) VALUES (?, ?)
			ON CONFLICT(date) DO UPDATE SET count = count + excluded.count
		`, date, snap.TotalQueries)
		if err != nil {
			return fmt.Errorf("save query totals: %w", err)
		}
	}

	for term, count := range snap.TopTerms {
		_, err = tx.Exec(`
			INSERT INTO query_terms (term, count) VALUES (?, ?)
			ON CONFLICT(term) DO UPDATE SET
				count = count + excluded.count,
				last_seen = CURRENT_TIMESTAMP
		`, term, count)
		if err != nil {
			return fmt.Errorf("save query term %q: %w", term, err)
		}
	}

	for _, query := range snap.ZeroResultQueries {
		if _, err = tx.Exec(`INSERT INTO zero_result_queries (query) VALUES (?)`, query); err != nil {
			return fmt.Errorf("save zero-result query: %w", err)
		}
	}
	// Cap the zero-result table to the most recent 100 rows.
	_, err = tx.Exec(`
		DELETE FROM zero_result_queries WHERE id NOT IN (
			SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT 100
		)
	`)
	if err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}

	for bucket, count := range snap.Latency {
		_, err = tx.Exec(`
			INSERT INTO query_latency_stats (date, bucket, count) VALUES (?, ?, ?)
			ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
		`, date, string(bucket), count)
		if err != nil {
			return fmt.Errorf("save latency bucket %s: %w", bucket, err)
		}
	}

	return tx.Commit()
}

// TermCount is one term-frequency row.
type TermCount struct {
	Term  string
	Count int64
}

// Report is an aggregated view over all persisted metrics.
type Report struct {
	TotalQueries      int64
	TopTerms          []TermCount
	ZeroResultQueries []string
	Latency           map[LatencyBucket]int64
}

// Report aggregates everything persisted so far.
func (s *Store) Report() (*Report, error) {
	r := &Report{Latency: make(map[LatencyBucket]int64)}

	if err := s.db.QueryRow(`SELECT COALESCE(SUM(count), 0) FROM query_totals`).
		Scan(&r.TotalQueries); err != nil {
		return nil, fmt.Errorf("load query totals: %w", err)
	}

	rows, err := s.db.Query(`SELECT term, count FROM query_terms ORDER BY count DESC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("load top terms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan term row: %w", err)
		}
		r.TopTerms = append(r.TopTerms, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate term rows: %w", err)
	}

	zrows, err := s.db.Query(`SELECT query FROM zero_result_queries ORDER BY id DESC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("load zero-result queries: %w", err)
	}
	defer zrows.Close()
	for zrows.Next() {
		var q string
		if err := zrows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan zero-result row: %w", err)
		}
		r.ZeroResultQueries = append(r.ZeroResultQueries, q)
	}
	if err := zrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zero-result rows: %w", err)
	}

	lrows, err := s.db.Query(`SELECT bucket, SUM(count) FROM query_latency_stats GROUP BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("load latency stats: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var bucket string
		var count int64
		if err := lrows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan latency row: %w", err)
		}
		r.Latency[LatencyBucket(bucket)] = count
	}
	if err := lrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latency rows: %w", err)
	}

	return r, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
