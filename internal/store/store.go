// Package store provides the durable store of record for markets, alert
// rules, and subscriptions, backed by a single SQLite database file.
//
// Markets are a read-through cache keyed by market id: an upsert replaces the
// whole row and stamps updated_at, and nothing ever evicts an entry. Alert
// rules use a guarded update for the pending-to-triggered transition so
// concurrent evaluation passes can never trigger the same rule twice.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tessora/marketscope/internal/models"
)

// ErrNotFound is returned when no row exists for the requested key.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database handle.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS markets (
	id             TEXT PRIMARY KEY,
	question       TEXT NOT NULL,
	description    TEXT,
	category       TEXT,
	end_date       TEXT,
	liquidity      REAL,
	volume         REAL,
	volume_24h     REAL,
	outcome_prices TEXT,
	outcomes       TEXT,
	score          REAL,
	image          TEXT,
	active         INTEGER,
	closed         INTEGER,
	source         TEXT DEFAULT 'polymarket',
	created_at     TEXT,
	updated_at     TEXT
);

CREATE TABLE IF NOT EXISTS alerts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	market_id    TEXT,
	alert_type   TEXT,
	threshold    REAL,
	message      TEXT,
	triggered_at TEXT,
	created_at   TEXT,
	FOREIGN KEY (market_id) REFERENCES markets(id)
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	email       TEXT,
	market_id   TEXT,
	alert_types TEXT,
	created_at  TEXT
);
`

// Open opens (creating if necessary) the database at path and bootstraps the
// schema. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(0)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeFormat is the canonical column encoding for timestamps.
const timeFormat = time.RFC3339Nano

func encodeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func decodeTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// UpsertMarket inserts or replaces the whole row for the market's id,
// stamping updated_at. The outcome price and label sequences are serialized
// as JSON text.
func (s *Store) UpsertMarket(ctx context.Context, m *models.Market) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid market: %w", err)
	}

	prices, err := json.Marshal(m.OutcomePrices)
	if err != nil {
		return fmt.Errorf("failed to encode outcome prices: %w", err)
	}
	outcomes, err := json.Marshal(m.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO markets
			(id, question, description, category, end_date, liquidity, volume, volume_24h,
			 outcome_prices, outcomes, score, image, active, closed, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			description = excluded.description,
			category = excluded.category,
			end_date = excluded.end_date,
			liquidity = excluded.liquidity,
			volume = excluded.volume,
			volume_24h = excluded.volume_24h,
			outcome_prices = excluded.outcome_prices,
			outcomes = excluded.outcomes,
			score = excluded.score,
			image = excluded.image,
			active = excluded.active,
			closed = excluded.closed,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		m.ID, m.Question, m.Description, m.Category, encodeTime(m.EndDate),
		m.Liquidity, m.Volume, m.Volume24h, string(prices), string(outcomes),
		m.Score, m.Image, boolToInt(m.Active), boolToInt(m.Closed), string(m.Source),
		encodeTime(now), encodeTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert market %s: %w", m.ID, err)
	}
	return nil
}

// GetMarket retrieves a cached market by id, decoding the serialized outcome
// sequences. Returns ErrNotFound when the id has never been cached.
func (s *Store) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, question, description, category, end_date, liquidity, volume, volume_24h,
		       outcome_prices, outcomes, score, image, active, closed, source, updated_at
		FROM markets WHERE id = ?`, id)

	m, err := scanMarket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("market %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load market %s: %w", id, err)
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(row rowScanner) (*models.Market, error) {
	var (
		m                         models.Market
		description, category     sql.NullString
		endDate, image, updatedAt sql.NullString
		pricesJSON, outcomesJSON  sql.NullString
		active, closed            int
		source                    string
	)
	err := row.Scan(&m.ID, &m.Question, &description, &category, &endDate,
		&m.Liquidity, &m.Volume, &m.Volume24h, &pricesJSON, &outcomesJSON,
		&m.Score, &image, &active, &closed, &source, &updatedAt)
	if err != nil {
		return nil, err
	}

	m.Description = description.String
	m.Category = category.String
	m.EndDate = decodeTime(endDate)
	m.Image = image.String
	m.Active = active != 0
	m.Closed = closed != 0
	m.Source = models.Source(source)
	m.UpdatedAt = decodeTime(updatedAt)

	m.OutcomePrices = []float64{}
	if pricesJSON.Valid && pricesJSON.String != "" {
		// A decode failure leaves the empty default rather than failing the read.
		_ = json.Unmarshal([]byte(pricesJSON.String), &m.OutcomePrices)
	}
	m.Outcomes = []string{}
	if outcomesJSON.Valid && outcomesJSON.String != "" {
		_ = json.Unmarshal([]byte(outcomesJSON.String), &m.Outcomes)
	}
	return &m, nil
}

// CategoryCount is one row of the category aggregate.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ListCategories returns the distinct categories of all cached markets with
// their market counts, most populous first.
func (s *Store) ListCategories(ctx context.Context) ([]CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS count
		FROM markets
		GROUP BY category
		ORDER BY count DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		var category sql.NullString
		if err := rows.Scan(&category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		c.Category = category.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
