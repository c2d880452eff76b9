// Package storage provides SQLite-backed persistence for feed
// snapshots and the posted-listing dedup records.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"cryptohornet/internal/logger"
	"cryptohornet/internal/models"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath. A corrupt
// database file is discarded and recreated: losing dedup state is
// recoverable, refusing to start is not.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "cryptohornet", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	s, err := open(dbPath)
	if err != nil && dbPath != ":memory:" {
		logger.Warn("State database unusable (%v), starting from an empty store", err)
		if rmErr := os.Remove(dbPath); rmErr != nil {
			return nil, fmt.Errorf("failed to remove corrupt database: %w", rmErr)
		}
		s, err = open(dbPath)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func open(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			feed_key TEXT NOT NULL,
			pair     TEXT NOT NULL,
			url      TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (feed_key, pair)
		)`,
		`CREATE TABLE IF NOT EXISTS posted (
			key        TEXT PRIMARY KEY,
			exchange   TEXT NOT NULL,
			market     TEXT NOT NULL,
			pair       TEXT NOT NULL,
			message_id INTEGER NOT NULL DEFAULT 0,
			chat_id    INTEGER NOT NULL DEFAULT 0,
			posted_at  INTEGER NOT NULL,
			have_time  INTEGER NOT NULL DEFAULT 0,
			best_time  TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			title      TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posted_have_time ON posted(have_time)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetSnapshot returns the stored snapshot for one feed key, or an
// empty snapshot if the key has never been observed.
func (s *Storage) GetSnapshot(feedKey string) (models.Snapshot, error) {
	rows, err := s.db.Query(`SELECT pair, url FROM snapshots WHERE feed_key = ?`, feedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := models.Snapshot{}
	for rows.Next() {
		var pairStr, url string
		if err := rows.Scan(&pairStr, &url); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		pair, err := models.ParsePair(pairStr)
		if err != nil {
			logger.Warn("Skipping malformed stored pair %q for %s", pairStr, feedKey)
			continue
		}
		snapshot[pair] = url
	}
	return snapshot, rows.Err()
}

// ReplaceSnapshot atomically swaps the stored snapshot of one feed.
func (s *Storage) ReplaceSnapshot(feedKey string, snapshot models.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM snapshots WHERE feed_key = ?`, feedKey); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO snapshots (feed_key, pair, url) VALUES (?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()
	for pair, url := range snapshot {
		if _, err := stmt.Exec(feedKey, pair.String(), url); err != nil {
			return fmt.Errorf("failed to insert snapshot pair: %w", err)
		}
	}
	return tx.Commit()
}

// WasPosted reports whether a pair has already been announced.
func (s *Storage) WasPosted(key string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM posted WHERE key = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check posted key: %w", err)
	}
	return true, nil
}

// MarkPosted records an announced pair. An existing record for the
// same key is left untouched: the posted set only grows.
func (s *Storage) MarkPosted(rec *models.PostedRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid posted record: %w", err)
	}
	_, err := s.db.Exec(`
		INSERT INTO posted
			(key, exchange, market, pair, message_id, chat_id, posted_at,
			 have_time, best_time, source_url, title)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(key) DO NOTHING`,
		rec.Key(), rec.Exchange, string(rec.Market), rec.Pair.String(),
		rec.MessageID, rec.ChatID, rec.PostedAt.UnixNano(),
		boolToInt(rec.HaveTime), rec.BestTime, rec.SourceURL, rec.Title,
	)
	if err != nil {
		return fmt.Errorf("failed to insert posted record: %w", err)
	}
	return nil
}

// GetPosted returns the record for one dedup key, or nil when absent.
func (s *Storage) GetPosted(key string) (*models.PostedRecord, error) {
	row := s.db.QueryRow(`SELECT `+postedCols+` FROM posted WHERE key = ?`, key)
	rec, err := scanPosted(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get posted record: %w", err)
	}
	return rec, nil
}

// ListUnresolved returns every announced pair still lacking a resolved
// time, oldest first.
func (s *Storage) ListUnresolved() ([]*models.PostedRecord, error) {
	rows, err := s.db.Query(`SELECT ` + postedCols + ` FROM posted WHERE have_time = 0 ORDER BY posted_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved records: %w", err)
	}
	defer rows.Close()

	var recs []*models.PostedRecord
	for rows.Next() {
		rec, err := scanPosted(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posted record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// SetResolvedTime flips a record to have_time=1 with its best time.
// Records that already carry a time are never touched again, so the
// flag moves in one direction only.
func (s *Storage) SetResolvedTime(key, bestTime string) error {
	if bestTime == "" {
		return fmt.Errorf("best time must not be empty")
	}
	res, err := s.db.Exec(`
		UPDATE posted SET have_time = 1, best_time = ?
		WHERE key = ? AND have_time = 0`, bestTime, key)
	if err != nil {
		return fmt.Errorf("failed to update posted record: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no unresolved record for key %s", key)
	}
	return nil
}

// CountPosted returns the size of the dedup set.
func (s *Storage) CountPosted() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM posted`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posted records: %w", err)
	}
	return n, nil
}

const postedCols = `exchange, market, pair, message_id, chat_id, posted_at,
	have_time, best_time, source_url, title`

func scanPosted(scan func(...any) error) (*models.PostedRecord, error) {
	var rec models.PostedRecord
	var market, pairStr string
	var postedAtNano int64
	var haveTime int
	err := scan(
		&rec.Exchange, &market, &pairStr, &rec.MessageID, &rec.ChatID,
		&postedAtNano, &haveTime, &rec.BestTime, &rec.SourceURL, &rec.Title,
	)
	if err != nil {
		return nil, err
	}
	pair, err := models.ParsePair(pairStr)
	if err != nil {
		return nil, err
	}
	rec.Market = models.Market(market)
	rec.Pair = pair
	rec.PostedAt = time.Unix(0, postedAtNano)
	rec.HaveTime = haveTime != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
