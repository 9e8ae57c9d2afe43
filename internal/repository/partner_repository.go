package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/partnerline/internal/db"
	"github.com/unclebandit/partnerline/internal/model"
)

// PartnerRepositoryInterface defines what the core needs from partner storage.
// Full partner CRUD lives outside this service.
type PartnerRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Partner, error)
	GetByPhone(ctx context.Context, phone string) (*model.Partner, error)
	Create(ctx context.Context, p *model.Partner) error
	ListActive(ctx context.Context) ([]model.Partner, error)
	SetOptedOut(ctx context.Context, id int64, optedOut bool) error
	TouchLastContacted(ctx context.Context, id int64, at time.Time) error
	Count(ctx context.Context) (int, error)
	CountNeverContacted(ctx context.Context) (int, error)
}

// PartnerRepository is the SQL implementation
type PartnerRepository struct {
	DB *db.DB
}

const partnerColumns = `
        SELECT p.id, p.phone, p.first_name, p.last_name, p.company,
               COALESCE(r.name, ''), COALESCE(t.name, ''),
               p.notes, p.opted_out, p.pinned, p.archived, p.created_at, p.last_contacted
        FROM partners p
        LEFT JOIN regions r ON r.id = p.region_id
        LEFT JOIN tsds t ON t.id = p.tsd_id
    `

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPartner(row rowScanner) (*model.Partner, error) {
	var (
		p             model.Partner
		createdAt     int64
		lastContacted sql.NullInt64
	)
	if err := row.Scan(
		&p.ID, &p.Phone, &p.FirstName, &p.LastName, &p.Company,
		&p.RegionName, &p.TSDName,
		&p.Notes, &p.OptedOut, &p.Pinned, &p.Archived, &createdAt, &lastContacted,
	); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.LastContacted = timePtr(lastContacted)
	return &p, nil
}

// GetByID returns nil, nil when the partner does not exist.
func (r *PartnerRepository) GetByID(ctx context.Context, id int64) (*model.Partner, error) {
	row := r.DB.QueryRowContext(ctx, r.DB.Rebind(partnerColumns+` WHERE p.id = ?`), id)
	p, err := scanPartner(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get partner %d: %w", id, err)
	}
	return p, nil
}

// GetByPhone returns nil, nil when no partner owns the phone number.
func (r *PartnerRepository) GetByPhone(ctx context.Context, phone string) (*model.Partner, error) {
	row := r.DB.QueryRowContext(ctx, r.DB.Rebind(partnerColumns+` WHERE p.phone = ?`), strings.TrimSpace(phone))
	p, err := scanPartner(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get partner by phone: %w", err)
	}
	return p, nil
}

// Create inserts a partner. RegionName and TSDName resolve against existing
// regions/tsds rows; unknown names leave the reference empty.
func (r *PartnerRepository) Create(ctx context.Context, p *model.Partner) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO partners (first_name, last_name, company, phone, region_id, tsd_id,
                              notes, opted_out, pinned, archived, created_at, last_contacted)
        VALUES (?, ?, ?, ?,
                (SELECT id FROM regions WHERE name = ?),
                (SELECT id FROM tsds WHERE name = ?),
                ?, ?, ?, ?, ?, ?)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, r.DB.Rebind(query),
		p.FirstName, p.LastName, p.Company, strings.TrimSpace(p.Phone),
		p.RegionName, p.TSDName,
		p.Notes, p.OptedOut, p.Pinned, p.Archived, toMillis(p.CreatedAt), nullMillis(p.LastContacted),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create partner: %w", err)
	}
	return nil
}

// ListActive returns partners that are neither archived nor opted out.
func (r *PartnerRepository) ListActive(ctx context.Context) ([]model.Partner, error) {
	rows, err := r.DB.QueryContext(ctx,
		r.DB.Rebind(partnerColumns+` WHERE p.archived = ? AND p.opted_out = ? ORDER BY p.id`),
		false, false,
	)
	if err != nil {
		return nil, fmt.Errorf("list active partners: %w", err)
	}
	defer rows.Close()

	partners := []model.Partner{}
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		partners = append(partners, *p)
	}
	return partners, rows.Err()
}

func (r *PartnerRepository) SetOptedOut(ctx context.Context, id int64, optedOut bool) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE partners SET opted_out = ? WHERE id = ?`), optedOut, id)
	if err != nil {
		return fmt.Errorf("set opted_out for partner %d: %w", id, err)
	}
	return nil
}

func (r *PartnerRepository) TouchLastContacted(ctx context.Context, id int64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE partners SET last_contacted = ? WHERE id = ?`), toMillis(at), id)
	if err != nil {
		return fmt.Errorf("touch last_contacted for partner %d: %w", id, err)
	}
	return nil
}

func (r *PartnerRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM partners`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count partners: %w", err)
	}
	return n, nil
}

func (r *PartnerRepository) CountNeverContacted(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM partners WHERE last_contacted IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count never contacted partners: %w", err)
	}
	return n, nil
}

var _ PartnerRepositoryInterface = (*PartnerRepository)(nil)
