package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/partnerline/internal/db"
	"github.com/unclebandit/partnerline/internal/model"
)

// MessageRepositoryInterface is the message log. Rows are append-only apart from
// status overwrites and the inbound received -> read transition.
type MessageRepositoryInterface interface {
	Append(ctx context.Context, m *model.Message) error
	ListByPartner(ctx context.Context, partnerID int64) ([]model.Message, error)
	ListRecent(ctx context.Context, partnerID int64, limit int) ([]model.Message, error)
	ListInbound(ctx context.Context, partnerID int64) ([]model.Message, error)
	UpdateStatusByTransportID(ctx context.Context, transportID, status string) (bool, error)
	MarkRead(ctx context.Context, partnerID int64) (int64, error)
	CountSince(ctx context.Context, since time.Time, direction model.Direction) (int, error)
	CountPartnersSince(ctx context.Context, since time.Time, direction model.Direction) (int, error)
	CountUnread(ctx context.Context) (int, error)
}

type MessageRepository struct {
	DB *db.DB
}

const messageColumns = `
        SELECT id, partner_id, direction, body, media_url, media_type, status, transport_id, created_at
        FROM messages
    `

func (r *MessageRepository) scanAll(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var (
			m         model.Message
			direction string
			createdAt int64
		)
		if err := rows.Scan(
			&m.ID, &m.PartnerID, &direction, &m.Body, &m.MediaURL, &m.MediaType,
			&m.Status, &m.TransportID, &createdAt,
		); err != nil {
			return nil, err
		}
		m.Direction = model.Direction(direction)
		m.CreatedAt = fromMillis(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Append inserts a message and fills in its ID.
func (r *MessageRepository) Append(ctx context.Context, m *model.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO messages (partner_id, direction, body, media_url, media_type, status, transport_id, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, r.DB.Rebind(query),
		m.PartnerID, string(m.Direction), m.Body, m.MediaURL, m.MediaType, m.Status, m.TransportID, toMillis(m.CreatedAt),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("append message for partner %d: %w", m.PartnerID, err)
	}
	return nil
}

// ListByPartner returns the conversation in chronological order; id breaks timestamp ties.
func (r *MessageRepository) ListByPartner(ctx context.Context, partnerID int64) ([]model.Message, error) {
	msgs, err := r.scanAll(ctx, messageColumns+` WHERE partner_id = ? ORDER BY created_at ASC, id ASC`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list messages for partner %d: %w", partnerID, err)
	}
	return msgs, nil
}

// ListRecent returns up to limit messages, newest first.
func (r *MessageRepository) ListRecent(ctx context.Context, partnerID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	msgs, err := r.scanAll(ctx, messageColumns+` WHERE partner_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, partnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages for partner %d: %w", partnerID, err)
	}
	return msgs, nil
}

func (r *MessageRepository) ListInbound(ctx context.Context, partnerID int64) ([]model.Message, error) {
	msgs, err := r.scanAll(ctx,
		messageColumns+` WHERE partner_id = ? AND direction = ? ORDER BY created_at ASC, id ASC`,
		partnerID, string(model.Inbound),
	)
	if err != nil {
		return nil, fmt.Errorf("list inbound messages for partner %d: %w", partnerID, err)
	}
	return msgs, nil
}

// UpdateStatusByTransportID overwrites the status of the message the provider knows as transportID.
func (r *MessageRepository) UpdateStatusByTransportID(ctx context.Context, transportID, status string) (bool, error) {
	transportID = strings.TrimSpace(transportID)
	if transportID == "" {
		return false, nil
	}
	res, err := r.DB.ExecContext(ctx,
		r.DB.Rebind(`UPDATE messages SET status = ? WHERE transport_id = ?`),
		status, transportID,
	)
	if err != nil {
		return false, fmt.Errorf("update status for %s: %w", transportID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for %s: %w", transportID, err)
	}
	return n > 0, nil
}

// MarkRead moves the partner's inbound messages from received to read.
func (r *MessageRepository) MarkRead(ctx context.Context, partnerID int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		r.DB.Rebind(`UPDATE messages SET status = ? WHERE partner_id = ? AND direction = ? AND status = ?`),
		model.MessageStatusRead, partnerID, string(model.Inbound), model.MessageStatusReceived,
	)
	if err != nil {
		return 0, fmt.Errorf("mark read for partner %d: %w", partnerID, err)
	}
	return res.RowsAffected()
}

// CountSince counts messages created at or after since. An empty direction counts both.
func (r *MessageRepository) CountSince(ctx context.Context, since time.Time, direction model.Direction) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE created_at >= ?`
	args := []any{toMillis(since)}
	if direction != "" {
		query += ` AND direction = ?`
		args = append(args, string(direction))
	}
	var n int
	if err := r.DB.QueryRowContext(ctx, r.DB.Rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// CountPartnersSince counts distinct partners with a message in direction since the given time.
func (r *MessageRepository) CountPartnersSince(ctx context.Context, since time.Time, direction model.Direction) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		r.DB.Rebind(`SELECT COUNT(DISTINCT partner_id) FROM messages WHERE created_at >= ? AND direction = ?`),
		toMillis(since), string(direction),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count partners with messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepository) CountUnread(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		r.DB.Rebind(`SELECT COUNT(*) FROM messages WHERE direction = ? AND status = ?`),
		string(model.Inbound), model.MessageStatusReceived,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
