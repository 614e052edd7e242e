package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/yakoovad/scanhub/internal/db"
)

type Scan struct {
	ID        int64     `db:"id"`
	Code      int       `db:"code"`
	OwnerID   *string   `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

type ScanRepository interface {
	// List returns scans newest-first. A non-nil ownerID filters to that
	// owner's rows.
	List(ctx context.Context, ownerID *string) ([]*Scan, error)
	Insert(ctx context.Context, code int, ownerID string) (*Scan, error)
}

type pgxScanRepository struct {
	pool *pgxpool.Pool
}

func NewPgxScanRepository(pool *pgxpool.Pool) ScanRepository {
	return &pgxScanRepository{pool: pool}
}

func (p *pgxScanRepository) List(ctx context.Context, ownerID *string) ([]*Scan, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "code", "user_id", "created_at"),
		sm.From("scans"),
		sm.OrderBy("created_at").Desc(),
	)

	if ownerID != nil {
		q.Apply(sm.Where(psql.Quote("user_id").EQ(psql.Arg(*ownerID))))
	}

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Scan, error) {
		s := &Scan{}
		if err = row.Scan(&s.ID, &s.Code, &s.OwnerID, &s.CreatedAt); err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	return scans, nil
}

func (p *pgxScanRepository) Insert(ctx context.Context, code int, ownerID string) (*Scan, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("scans", "code", "user_id"),
		im.Values(psql.Arg(code), psql.Arg(ownerID)),
		im.Returning("id", "code", "user_id", "created_at"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	s := &Scan{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.Code, &s.OwnerID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}
