package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/observability"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both a pool and a pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

type UsersRepo struct {
	db   DB
	prom *observability.Prom
}

func NewUsersRepo(db DB, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, prom: prom}
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (principal.Principal, error) {
	p := principal.Principal{Kind: principal.KindUser}

	err := r.prom.ObserveDB("users.find_by_email", func() error {
		return r.db.QueryRow(ctx,
			`SELECT id, name, email, password_hash, created_at, last_login_at
			 FROM users
			 WHERE email = $1`,
			email,
		).Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.CreatedAt, &p.LastLoginAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return principal.Principal{}, repo.ErrNotFound
		}
		return principal.Principal{}, err
	}
	return p, nil
}

func (r *UsersRepo) Create(ctx context.Context, p principal.Principal) (principal.Principal, error) {
	p.Kind = principal.KindUser
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.Name, p.Email, p.PasswordHash, p.CreatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return principal.Principal{}, repo.ErrEmailTaken
		}
		return principal.Principal{}, err
	}
	return p, nil
}

func (r *UsersRepo) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	return touchLastLogin(ctx, r.db, r.prom, "users", email, at)
}

func (r *UsersRepo) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, r.prom, "users")
}

func (r *UsersRepo) DeleteAll(ctx context.Context) (int64, error) {
	return deleteRows(ctx, r.db, r.prom, "users")
}

type AdminsRepo struct {
	db   DB
	prom *observability.Prom
}

func NewAdminsRepo(db DB, prom *observability.Prom) *AdminsRepo {
	return &AdminsRepo{db: db, prom: prom}
}

func (r *AdminsRepo) FindByEmail(ctx context.Context, email string) (principal.Principal, error) {
	p := principal.Principal{Kind: principal.KindAdmin}
	var perms []string

	err := r.prom.ObserveDB("admins.find_by_email", func() error {
		return r.db.QueryRow(ctx,
			`SELECT id, name, email, password_hash, role, permissions, is_active, created_at, last_login_at
			 FROM admins
			 WHERE email = $1`,
			email,
		).Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.Role, &perms, &p.IsActive, &p.CreatedAt, &p.LastLoginAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return principal.Principal{}, repo.ErrNotFound
		}
		return principal.Principal{}, err
	}

	p.Permissions = make([]principal.Permission, 0, len(perms))
	for _, perm := range perms {
		p.Permissions = append(p.Permissions, principal.Permission(perm))
	}
	return p, nil
}

func (r *AdminsRepo) Create(ctx context.Context, p principal.Principal) (principal.Principal, error) {
	p.Kind = principal.KindAdmin
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	perms := make([]string, 0, len(p.Permissions))
	for _, perm := range p.Permissions {
		perms = append(perms, string(perm))
	}

	err := r.prom.ObserveDB("admins.create", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO admins (id, name, email, password_hash, role, permissions, is_active, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Name, p.Email, p.PasswordHash, p.Role, perms, p.IsActive, p.CreatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return principal.Principal{}, repo.ErrEmailTaken
		}
		return principal.Principal{}, err
	}
	return p, nil
}

func (r *AdminsRepo) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	return touchLastLogin(ctx, r.db, r.prom, "admins", email, at)
}

func (r *AdminsRepo) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, r.prom, "admins")
}

func (r *AdminsRepo) DeleteAll(ctx context.Context) (int64, error) {
	return deleteRows(ctx, r.db, r.prom, "admins")
}

// The helpers below splice table into SQL; callers only pass literals.

func touchLastLogin(ctx context.Context, db querier, prom *observability.Prom, table, email string, at time.Time) error {
	var tag pgconn.CommandTag

	err := prom.ObserveDB(table+".touch_last_login", func() error {
		var err error
		tag, err = db.Exec(ctx, `UPDATE `+table+` SET last_login_at = $2 WHERE email = $1`, email, at)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func countRows(ctx context.Context, db querier, prom *observability.Prom, table string) (int64, error) {
	var n int64
	err := prom.ObserveDB(table+".count", func() error {
		return db.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	})
	return n, err
}

func deleteRows(ctx context.Context, db querier, prom *observability.Prom, table string) (int64, error) {
	var tag pgconn.CommandTag
	err := prom.ObserveDB(table+".delete_all", func() error {
		var err error
		tag, err = db.Exec(ctx, `DELETE FROM `+table)
		return err
	})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
