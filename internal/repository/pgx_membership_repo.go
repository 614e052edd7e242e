package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/yakoovad/scanhub/internal/db"
)

type Membership struct {
	OwnerID string `db:"user_id"`
	Team    int    `db:"team"`
}

type MembershipRepository interface {
	GetAll(ctx context.Context) ([]*Membership, error)
	GetByOwner(ctx context.Context, ownerID string) (*Membership, error)
	Insert(ctx context.Context, m *Membership) error
	UpdateTeam(ctx context.Context, ownerID string, team int) error
}

type pgxMembershipRepository struct {
	pool *pgxpool.Pool
}

func NewPgxMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &pgxMembershipRepository{pool: pool}
}

func (p *pgxMembershipRepository) GetAll(ctx context.Context) ([]*Membership, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("user_id", "team"),
		sm.From("teams"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Membership, error) {
		m := &Membership{}
		if err = row.Scan(&m.OwnerID, &m.Team); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	return memberships, nil
}

func (p *pgxMembershipRepository) GetByOwner(ctx context.Context, ownerID string) (*Membership, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("user_id", "team"),
		sm.From("teams"),
		sm.Where(psql.Quote("user_id").EQ(psql.Arg(ownerID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	m := &Membership{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&m.OwnerID, &m.Team); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (p *pgxMembershipRepository) Insert(ctx context.Context, m *Membership) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("teams", "user_id", "team"),
		im.Values(psql.Arg(m.OwnerID), psql.Arg(m.Team)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxMembershipRepository) UpdateTeam(ctx context.Context, ownerID string, team int) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("teams"),
		um.SetCol("team").ToArg(team),
		um.Where(psql.Quote("user_id").EQ(psql.Arg(ownerID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
