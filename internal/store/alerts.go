package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tessora/marketscope/internal/models"
)

// CreateAlert persists a new rule and fills in its assigned id and creation
// time. The referenced market id is not required to exist yet.
func (s *Store) CreateAlert(ctx context.Context, r *models.AlertRule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (market_id, alert_type, threshold, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.MarketID, string(r.Type), r.Threshold, r.Message, encodeTime(now))
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read alert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

// ListAlerts returns every rule, newest first, joined with the cached
// market's question where the market is present.
func (s *Store) ListAlerts(ctx context.Context) ([]models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.market_id, a.alert_type, a.threshold, a.message, a.triggered_at, a.created_at,
		       m.question
		FROM alerts a
		LEFT JOIN markets m ON a.market_id = m.id
		ORDER BY a.created_at DESC, a.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// PendingAlerts returns every rule whose trigger transition has not happened
// yet, oldest first.
func (s *Store) PendingAlerts(ctx context.Context) ([]models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.market_id, a.alert_type, a.threshold, a.message, a.triggered_at, a.created_at,
		       m.question
		FROM alerts a
		LEFT JOIN markets m ON a.market_id = m.id
		WHERE a.triggered_at IS NULL
		ORDER BY a.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlerts(rows *sql.Rows) ([]models.AlertRule, error) {
	var out []models.AlertRule
	for rows.Next() {
		var (
			r                      models.AlertRule
			alertType              string
			message                sql.NullString
			triggeredAt, createdAt sql.NullString
			question               sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.MarketID, &alertType, &r.Threshold,
			&message, &triggeredAt, &createdAt, &question); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		r.Type = models.AlertType(alertType)
		r.Message = message.String
		r.CreatedAt = decodeTime(createdAt)
		r.MarketQuestion = question.String
		if t := decodeTime(triggeredAt); !t.IsZero() {
			r.TriggeredAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteAlert removes a rule. Deleting an id that does not exist is not an
// error.
func (s *Store) DeleteAlert(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete alert %d: %w", id, err)
	}
	return nil
}

// MarkTriggered performs the pending-to-triggered transition for one rule.
// The update is conditioned on triggered_at still being NULL, so exactly one
// of any number of concurrent callers wins; the return value reports whether
// this caller did.
func (s *Store) MarkTriggered(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET triggered_at = ? WHERE id = ? AND triggered_at IS NULL`,
		encodeTime(at), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark alert %d triggered: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// CreateSubscription persists a new subscription and fills in its assigned
// id and creation time. An empty alert type set gets the default set.
func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if len(sub.AlertTypes) == 0 {
		sub.AlertTypes = models.DefaultAlertTypes()
	}
	if err := sub.Validate(); err != nil {
		return err
	}

	types, err := json.Marshal(sub.AlertTypes)
	if err != nil {
		return fmt.Errorf("failed to encode alert types: %w", err)
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (email, market_id, alert_types, created_at)
		VALUES (?, ?, ?, ?)`,
		sub.Email, nullIfEmpty(sub.MarketID), string(types), encodeTime(now))
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read subscription id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt = now
	return nil
}

// ListSubscriptions returns subscriptions newest first, optionally filtered
// by email.
func (s *Store) ListSubscriptions(ctx context.Context, email string) ([]models.Subscription, error) {
	query := `SELECT id, email, market_id, alert_types, created_at FROM subscriptions`
	args := []any{}
	if email != "" {
		query += ` WHERE email = ?`
		args = append(args, email)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []models.Subscription
	for rows.Next() {
		var (
			sub                 models.Subscription
			marketID, typesJSON sql.NullString
			createdAt           sql.NullString
		)
		if err := rows.Scan(&sub.ID, &sub.Email, &marketID, &typesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		sub.MarketID = marketID.String
		sub.CreatedAt = decodeTime(createdAt)
		sub.AlertTypes = []models.AlertType{}
		if typesJSON.Valid && typesJSON.String != "" {
			_ = json.Unmarshal([]byte(typesJSON.String), &sub.AlertTypes)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
