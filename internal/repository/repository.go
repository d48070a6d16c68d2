// Package repository persists analysis runs and integrity alerts in PostgreSQL
package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/integrity/sanctions-crosscheck/internal/config"
	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when no row matches the requested id
var ErrNotFound = errors.New("not found")

// Repository is the pgx-backed store
type Repository struct {
	pool *pgxpool.Pool
}

// Connect opens a pool sized from cfg and verifies it
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Repository, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(min(cfg.MaxIdleConns, cfg.MaxOpenConns))
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	return ConnectConfig(ctx, poolCfg)
}

// ConnectConfig opens a pool from an already parsed configuration
func ConnectConfig(ctx context.Context, poolCfg *pgxpool.Config) (*Repository, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Close releases the pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Migrate applies the embedded schema. Statements are idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const insertRun = `
INSERT INTO analysis_runs (
	id, sanctions_path, contracts_path, sanctions_count, contracts_count, flagged_count,
	total_contracts_value, total_flagged_value, percent_flagged, started_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const insertFlagged = `
INSERT INTO flagged_contracts (
	run_id, identifier, supplier_name, contract_number, contract_date, contract_value, organ,
	sanction_source, sanction_type, sanction_start, sanction_end, status, severity
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const insertAlert = `
INSERT INTO integrity_alerts (
	id, run_id, identifier, name, alert_type, pattern_kind, priority, description, pattern, reviewed, detected_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// SaveAnalysis writes the run, its flagged pairs and its alerts in one transaction
func (r *Repository) SaveAnalysis(ctx context.Context, run *domain.AnalysisRun) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s := run.Summary
	batch := &pgx.Batch{}
	batch.Queue(insertRun,
		run.ID, run.SanctionsPath, run.ContractsPath,
		s.SanctionsCount, s.ContractsCount, s.FlaggedCount,
		s.TotalContractsValue, s.TotalFlaggedValue, s.PercentFlagged,
		run.StartedAt, run.CompletedAt,
	)
	for _, p := range s.Flagged {
		batch.Queue(insertFlagged,
			run.ID, string(p.Contract.Identifier), p.Contract.PartyName, p.Contract.ContractNumber,
			p.Contract.SignedDate, p.Contract.Value, p.Contract.ContractingBody,
			p.Sanction.Source, p.Sanction.SanctionType, p.Sanction.SanctionStart, p.Sanction.SanctionEnd,
			p.Status, string(p.Severity),
		)
	}
	for _, a := range run.Alerts {
		pattern, err := json.Marshal(a.Pattern)
		if err != nil {
			return fmt.Errorf("marshal pattern: %w", err)
		}
		batch.Queue(insertAlert,
			a.ID, run.ID, string(a.Identifier), a.Name, string(a.AlertType), string(a.PatternKind),
			string(a.Priority), a.Description, pattern, a.Reviewed, a.DetectedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save analysis %s: %w", run.ID, err)
	}
	return tx.Commit(ctx)
}

// ListAlerts returns alerts newest first, optionally only those not yet reviewed
func (r *Repository) ListAlerts(ctx context.Context, unreviewedOnly bool) ([]domain.IntegrityAlert, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, run_id, identifier, name, alert_type, pattern_kind, priority, description,
       pattern, reviewed, reviewed_at, detected_at
FROM integrity_alerts
WHERE NOT $1 OR NOT reviewed
ORDER BY detected_at DESC, id`, unreviewedOnly)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	out := []domain.IntegrityAlert{}
	for rows.Next() {
		var (
			a        domain.IntegrityAlert
			id       string
			alert    string
			kind     string
			priority string
			pattern  []byte
		)
		if err := rows.Scan(&a.ID, &a.RunID, &id, &a.Name, &alert, &kind, &priority, &a.Description,
			&pattern, &a.Reviewed, &a.ReviewedAt, &a.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Identifier = domain.Identifier(id)
		a.AlertType = domain.AlertType(alert)
		a.PatternKind = domain.PatternKind(kind)
		a.Priority = domain.RiskLevel(priority)
		if err := json.Unmarshal(pattern, &a.Pattern); err != nil {
			return nil, fmt.Errorf("decode pattern for alert %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkReviewed flags an alert as reviewed. Reviewing twice keeps the first timestamp.
func (r *Repository) MarkReviewed(ctx context.Context, id uuid.UUID) error {
	var reviewed bool
	err := r.pool.QueryRow(ctx, `
UPDATE integrity_alerts
SET reviewed = TRUE, reviewed_at = COALESCE(reviewed_at, NOW())
WHERE id = $1
RETURNING reviewed`, id).Scan(&reviewed)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("mark alert %s reviewed: %w", id, err)
	}
	return nil
}
