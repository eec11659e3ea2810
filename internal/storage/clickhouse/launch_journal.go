package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/observability"
	"solana-launch-sniper/internal/storage"
)

// LaunchJournal implements storage.LaunchJournal using ClickHouse.
type LaunchJournal struct {
	conn *Conn
}

// NewLaunchJournal creates a new LaunchJournal.
func NewLaunchJournal(conn *Conn) *LaunchJournal {
	return &LaunchJournal{conn: conn}
}

// Compile-time interface check.
var _ storage.LaunchJournal = (*LaunchJournal)(nil)

// Record appends a journal row. The ID must be a UUID.
func (j *LaunchJournal) Record(ctx context.Context, r *domain.LaunchRecord) (err error) {
	if r == nil {
		return storage.ErrInvalidInput
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("%w: id %q: %v", storage.ErrInvalidInput, r.ID, err)
	}

	start := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "record_launch", time.Since(start).Seconds(), err) }()

	query := `
		INSERT INTO launch_journal (
			id, kind, signature, mint, base_is_sol, detected_at_slot,
			outcome, dispatch_sig, error, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var baseIsSOL uint8
	if r.BaseIsSOL {
		baseIsSOL = 1
	}

	err = j.conn.Exec(ctx, query,
		id, string(r.Kind), r.Signature, r.Mint, baseIsSOL, r.DetectedAtSlot,
		string(r.Outcome), r.DispatchSig, r.Error, r.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert launch record: %w", err)
	}
	return nil
}

// Recent returns at most limit rows, newest first. limit <= 0 defaults to 100.
func (j *LaunchJournal) Recent(ctx context.Context, limit int) ([]*domain.LaunchRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT
			id, kind, signature, mint, base_is_sol, detected_at_slot,
			outcome, dispatch_sig, error, recorded_at
		FROM launch_journal
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`

	rows, err := j.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query launch journal: %w", err)
	}
	defer rows.Close()

	var records []*domain.LaunchRecord
	for rows.Next() {
		var (
			r             domain.LaunchRecord
			id            uuid.UUID
			kind, outcome string
			baseIsSOL     uint8
		)
		err := rows.Scan(
			&id, &kind, &r.Signature, &r.Mint, &baseIsSOL, &r.DetectedAtSlot,
			&outcome, &r.DispatchSig, &r.Error, &r.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan launch record: %w", err)
		}
		r.ID = id.String()
		r.Kind = domain.LaunchKind(kind)
		r.Outcome = domain.LaunchOutcome(outcome)
		r.BaseIsSOL = baseIsSOL == 1
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate launch records: %w", err)
	}
	return records, nil
}
