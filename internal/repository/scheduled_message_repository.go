package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/unclebandit/partnerline/internal/db"
	appErrors "github.com/unclebandit/partnerline/internal/errors"
	"github.com/unclebandit/partnerline/internal/model"
)

type ScheduledMessageRepositoryInterface interface {
	Create(ctx context.Context, s *model.ScheduledMessage) error
	GetByID(ctx context.Context, id int64) (*model.ScheduledMessage, error)
	ListPending(ctx context.Context) ([]model.ScheduledMessage, error)
	ClaimDue(ctx context.Context, now time.Time, leaseTTL time.Duration) ([]model.ScheduledMessage, error)
	Heartbeat(ctx context.Context, id int64, claimedAt, now time.Time) (bool, error)
	MarkSent(ctx context.Context, id int64, claimedAt time.Time) (bool, error)
	Cancel(ctx context.Context, id int64) error
}

type ScheduledMessageRepository struct {
	DB *db.DB
}

const scheduledColumns = `
        SELECT id, template, partner_ids, media_url, media_type, scheduled_time, status, claimed_at, created_at
        FROM scheduled_messages
    `

// claimable matches batches that are due, or whose previous claim outlived its lease.
const claimable = `((status = ? AND scheduled_time <= ?) OR (status = ? AND claimed_at IS NOT NULL AND claimed_at <= ?))`

func scanScheduled(row rowScanner) (*model.ScheduledMessage, error) {
	var (
		s             model.ScheduledMessage
		partnerIDs    string
		scheduledTime int64
		claimedAt     sql.NullInt64
		createdAt     int64
	)
	if err := row.Scan(
		&s.ID, &s.Template, &partnerIDs, &s.MediaURL, &s.MediaType,
		&scheduledTime, &s.Status, &claimedAt, &createdAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(partnerIDs), &s.PartnerIDs); err != nil {
		return nil, fmt.Errorf("decode partner_ids of scheduled message %d: %w", s.ID, err)
	}
	s.ScheduledTime = fromMillis(scheduledTime)
	s.ClaimedAt = timePtr(claimedAt)
	s.CreatedAt = fromMillis(createdAt)
	return &s, nil
}

// Create stores the batch with its target list frozen as a JSON array.
func (r *ScheduledMessageRepository) Create(ctx context.Context, s *model.ScheduledMessage) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = model.ScheduledPending
	}
	ids := s.PartnerIDs
	if ids == nil {
		ids = []int64{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode partner_ids: %w", err)
	}
	query := `
        INSERT INTO scheduled_messages (template, partner_ids, media_url, media_type, scheduled_time, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `
	err = r.DB.QueryRowContext(ctx, r.DB.Rebind(query),
		s.Template, string(encoded), s.MediaURL, s.MediaType, toMillis(s.ScheduledTime), s.Status, toMillis(s.CreatedAt),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create scheduled message: %w", err)
	}
	return nil
}

func (r *ScheduledMessageRepository) GetByID(ctx context.Context, id int64) (*model.ScheduledMessage, error) {
	row := r.DB.QueryRowContext(ctx, r.DB.Rebind(scheduledColumns+` WHERE id = ?`), id)
	s, err := scanScheduled(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewScheduledMessageNotFound(id)
		}
		return nil, fmt.Errorf("get scheduled message %d: %w", id, err)
	}
	return s, nil
}

// ListPending returns pending batches ordered by fire time.
func (r *ScheduledMessageRepository) ListPending(ctx context.Context) ([]model.ScheduledMessage, error) {
	rows, err := r.DB.QueryContext(ctx,
		r.DB.Rebind(scheduledColumns+` WHERE status = ? ORDER BY scheduled_time ASC, id ASC`),
		model.ScheduledPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending scheduled messages: %w", err)
	}
	defer rows.Close()

	out := []model.ScheduledMessage{}
	for rows.Next() {
		s, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ClaimDue moves every claimable batch to processing and returns the ones this
// caller won. Each claim is a conditional UPDATE, so concurrent callers never
// both win the same row.
func (r *ScheduledMessageRepository) ClaimDue(ctx context.Context, now time.Time, leaseTTL time.Duration) ([]model.ScheduledMessage, error) {
	if leaseTTL <= 0 {
		return nil, fmt.Errorf("lease ttl must be greater than zero")
	}
	nowMS := toMillis(now)
	staleMS := toMillis(now.Add(-leaseTTL))

	rows, err := r.DB.QueryContext(ctx,
		r.DB.Rebind(`SELECT id FROM scheduled_messages WHERE `+claimable+` ORDER BY scheduled_time ASC, id ASC`),
		model.ScheduledPending, nowMS, model.ScheduledProcessing, staleMS,
	)
	if err != nil {
		return nil, fmt.Errorf("select claim candidates: %w", err)
	}
	candidates := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan claim candidate: %w", err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate claim candidates: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close claim candidates: %w", err)
	}

	claimed := []model.ScheduledMessage{}
	for _, id := range candidates {
		res, err := r.DB.ExecContext(ctx,
			r.DB.Rebind(`UPDATE scheduled_messages SET status = ?, claimed_at = ? WHERE id = ? AND `+claimable),
			model.ScheduledProcessing, nowMS, id,
			model.ScheduledPending, nowMS, model.ScheduledProcessing, staleMS,
		)
		if err != nil {
			return claimed, fmt.Errorf("claim scheduled message %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return claimed, fmt.Errorf("claim rows affected for %d: %w", id, err)
		}
		if n == 0 {
			// Someone else claimed or cancelled it between select and update.
			continue
		}
		s, err := r.GetByID(ctx, id)
		if err != nil {
			return claimed, err
		}
		claimed = append(claimed, *s)
	}
	return claimed, nil
}

// Heartbeat renews the lease of a batch this caller still holds. claimedAt is
// the lease the caller last stamped; false means another run took the batch over.
func (r *ScheduledMessageRepository) Heartbeat(ctx context.Context, id int64, claimedAt, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		r.DB.Rebind(`UPDATE scheduled_messages SET claimed_at = ? WHERE id = ? AND status = ? AND claimed_at = ?`),
		toMillis(now), id, model.ScheduledProcessing, toMillis(claimedAt),
	)
	if err != nil {
		return false, fmt.Errorf("renew lease on scheduled message %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSent finishes a batch claimed with the lease stamped at claimedAt. It
// reports false if the batch left processing or was reclaimed by another run.
func (r *ScheduledMessageRepository) MarkSent(ctx context.Context, id int64, claimedAt time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		r.DB.Rebind(`UPDATE scheduled_messages SET status = ? WHERE id = ? AND status = ? AND claimed_at = ?`),
		model.ScheduledSent, id, model.ScheduledProcessing, toMillis(claimedAt),
	)
	if err != nil {
		return false, fmt.Errorf("mark scheduled message %d sent: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Cancel moves a pending batch to cancelled. Batches already claimed or finished
// return ErrNotCancellable.
func (r *ScheduledMessageRepository) Cancel(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx,
		r.DB.Rebind(`UPDATE scheduled_messages SET status = ? WHERE id = ? AND status = ?`),
		model.ScheduledCancelled, id, model.ScheduledPending,
	)
	if err != nil {
		return fmt.Errorf("cancel scheduled message %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return appErrors.ErrNotCancellable
}

var _ ScheduledMessageRepositoryInterface = (*ScheduledMessageRepository)(nil)
