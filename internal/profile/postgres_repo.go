package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libraryapi/internal/identity"
	"libraryapi/internal/platform/postgres"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectColumns = `id, name, email, role, password_hash, created_at, updated_at`

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func scanProfile(row pgx.Row, p *Profile) error {
	return row.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PostgresRepo) Create(ctx context.Context, p *Profile) error {
	const query = `
	INSERT INTO profiles (name, email, password_hash, role)
	VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'student'))
	RETURNING id, role, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, p.Name, NormalizeEmail(p.Email), p.PasswordHash, string(p.Role)).
		Scan(&p.ID, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	p.Email = NormalizeEmail(p.Email)
	return nil
}

func (r *PostgresRepo) getOne(ctx context.Context, where string, arg any) (Profile, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var p Profile
	err := scanProfile(r.db.QueryRow(timeoutCtx, `SELECT `+selectColumns+` FROM profiles WHERE `+where+` LIMIT 1`, arg), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return r.getOne(ctx, "email = $1", NormalizeEmail(email))
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Profile, error) {
	if !postgres.ValidUUID(id) {
		return Profile{}, ErrNotFound
	}
	return r.getOne(ctx, "id = $1", id)
}

// List returns profiles ordered by name.
func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Profile, int, error) {
	ds := goqu.Dialect("postgres").From("profiles")
	if q.Search != "" {
		pattern := "%" + postgres.EscapeLike(q.Search) + "%"
		ds = ds.Where(goqu.Or(goqu.C("name").ILike(pattern), goqu.C("email").ILike(pattern)))
	}
	if q.Role != "" {
		ds = ds.Where(goqu.C("role").Eq(string(q.Role)))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	listDS := ds.
		Select("id", "name", "email", "role", "password_hash", "created_at", "updated_at").
		Order(goqu.C("name").Asc(), goqu.C("id").Asc())
	if q.Limit > 0 {
		listDS = listDS.Limit(uint(q.Limit))
	}
	if q.Offset > 0 {
		listDS = listDS.Offset(uint(q.Offset))
	}
	listSQL, listArgs, err := listDS.Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	rows, err := r.db.Query(timeoutCtx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := make([]Profile, 0)
	for rows.Next() {
		var p Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	return out, total, nil
}

func (r *PostgresRepo) UpdateRole(ctx context.Context, id string, role identity.Role) (Profile, error) {
	if !postgres.ValidUUID(id) {
		return Profile{}, ErrNotFound
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var p Profile
	err := scanProfile(r.db.QueryRow(timeoutCtx,
		`UPDATE profiles SET role = $2 WHERE id = $1 RETURNING `+selectColumns, id, string(role)), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("update role: %w", err)
	}
	return p, nil
}
