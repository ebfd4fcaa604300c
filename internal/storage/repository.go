package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"market-scanner/internal/dedup"
	"market-scanner/internal/pipeline"
)

// AlertRecord is one persisted alert row
type AlertRecord struct {
	ID          string          `json:"id"`
	Asset       string          `json:"asset"`
	Timeframe   string          `json:"timeframe"`
	Pattern     string          `json:"pattern"`
	Type        string          `json:"type"`
	Confidence  int             `json:"confidence"`
	Price       float64         `json:"price"`
	DetectedAt  time.Time       `json:"detected_at"`
	MessageSent bool            `json:"message_sent"`
	KeyLevels   json.RawMessage `json:"key_levels"`
	PatternData json.RawMessage `json:"pattern_data"`
}

// Repository persists alerts and cooldown records in PostgreSQL
type Repository struct {
	db *DB
}

// NewRepository creates a repository over the connection pool
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveAlert inserts a new alert row. The row ID is assigned here, at
// the persistence boundary, so the analysis core stays deterministic.
func (r *Repository) SaveAlert(ctx context.Context, alert pipeline.Alert) error {
	keyLevels, err := json.Marshal(alert.Levels)
	if err != nil {
		return fmt.Errorf("marshal key levels: %w", err)
	}
	patternData, err := json.Marshal(alert.Metrics)
	if err != nil {
		return fmt.Errorf("marshal pattern data: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO alerts (id, asset, timeframe, pattern, type, confidence, price, detected_at, message_sent, key_levels, pattern_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New().String(),
		alert.Instrument,
		alert.Timeframe,
		string(alert.Kind),
		string(alert.Bias),
		alert.Confidence,
		alert.Price,
		alert.DetectedAt,
		false,
		keyLevels,
		patternData,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// RecentAlerts fetches the newest alerts, optionally filtered by asset
func (r *Repository) RecentAlerts(ctx context.Context, limit int, asset string) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, asset, timeframe, pattern, type, confidence, price, detected_at, message_sent, key_levels, pattern_data
		FROM alerts`
	args := []interface{}{}
	if asset != "" {
		query += ` WHERE asset = $1 ORDER BY detected_at DESC LIMIT $2`
		args = append(args, asset, limit)
	} else {
		query += ` ORDER BY detected_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var records []AlertRecord
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(
			&rec.ID, &rec.Asset, &rec.Timeframe, &rec.Pattern, &rec.Type,
			&rec.Confidence, &rec.Price, &rec.DetectedAt, &rec.MessageSent,
			&rec.KeyLevels, &rec.PatternData,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkMessageSent flags an alert as delivered
func (r *Repository) MarkMessageSent(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE alerts SET message_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark message sent: %w", err)
	}
	return nil
}

// PostgresCooldownStore implements the cooldown store over the
// cooldowns table.
type PostgresCooldownStore struct {
	db *DB
}

// NewPostgresCooldownStore creates a Postgres-backed cooldown store
func NewPostgresCooldownStore(db *DB) *PostgresCooldownStore {
	return &PostgresCooldownStore{db: db}
}

func (s *PostgresCooldownStore) GetLastEmitted(ctx context.Context, id dedup.Identity) (time.Time, bool, error) {
	var last time.Time
	err := s.db.Pool.QueryRow(ctx,
		`SELECT last_emitted FROM cooldowns WHERE identity = $1`, id.Key(),
	).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("cooldown lookup: %w", err)
	}
	return last, true, nil
}

func (s *PostgresCooldownStore) SetLastEmitted(ctx context.Context, id dedup.Identity, t time.Time) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO cooldowns (identity, last_emitted) VALUES ($1, $2)
		ON CONFLICT (identity) DO UPDATE SET last_emitted = EXCLUDED.last_emitted`,
		id.Key(), t,
	)
	if err != nil {
		return fmt.Errorf("cooldown upsert: %w", err)
	}
	return nil
}
