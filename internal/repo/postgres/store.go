package postgres

import (
	"context"
	"fmt"

	"github.com/geocoder89/authgate/internal/observability"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/jackc/pgx/v5"
)

// Store is the Postgres-backed credential store.
type Store struct {
	db     DB
	prom   *observability.Prom
	users  *UsersRepo
	admins *AdminsRepo
}

func NewStore(db DB, prom *observability.Prom) *Store {
	return &Store{
		db:     db,
		prom:   prom,
		users:  NewUsersRepo(db, prom),
		admins: NewAdminsRepo(db, prom),
	}
}

func (s *Store) Users() repo.Namespace  { return s.users }
func (s *Store) Admins() repo.Namespace { return s.admins }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Purge counts and deletes both tables in one transaction. Both tables are
// locked first so the counts match what the deletes remove.
func (s *Store) Purge(ctx context.Context) (counts repo.PurgeCounts, err error) {
	var tx pgx.Tx

	err = s.prom.ObserveDB("purge.begin", func() error {
		var err error
		tx, err = s.db.Begin(ctx)
		return err
	})
	if err != nil {
		return repo.PurgeCounts{}, fmt.Errorf("begin purge: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = s.prom.ObserveDB("purge.lock", func() error {
		_, err := tx.Exec(ctx, `LOCK TABLE users, admins IN EXCLUSIVE MODE`)
		return err
	})
	if err != nil {
		return repo.PurgeCounts{}, fmt.Errorf("lock tables: %w", err)
	}

	if counts.UsersBefore, err = countRows(ctx, tx, s.prom, "users"); err != nil {
		return repo.PurgeCounts{}, fmt.Errorf("count users: %w", err)
	}
	if counts.AdminsBefore, err = countRows(ctx, tx, s.prom, "admins"); err != nil {
		return repo.PurgeCounts{}, fmt.Errorf("count admins: %w", err)
	}

	if counts.UsersDeleted, err = deleteRows(ctx, tx, s.prom, "users"); err != nil {
		return repo.PurgeCounts{}, fmt.Errorf("delete users: %w", err)
	}
	if counts.AdminsDeleted, err = deleteRows(ctx, tx, s.prom, "admins"); err != nil {
		return repo.PurgeCounts{}, fmt.Errorf("delete admins: %w", err)
	}

	err = s.prom.ObserveDB("purge.commit", func() error {
		return tx.Commit(ctx)
	})
	if err != nil {
		return repo.PurgeCounts{}, fmt.Errorf("commit purge: %w", err)
	}

	return counts, nil
}
