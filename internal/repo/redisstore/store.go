// Package redisstore keeps principals as JSON documents in Redis.
//
// Layout per namespace (kind is "user" or "admin"):
//
//	{prefix}:{kind}:email:{email}  JSON document
//	{prefix}:{kind}:index          set of every stored email
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/observability"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// maxTxRetries bounds attempts for WATCH transactions.
const (
	maxTxRetries = 5
	txRetryBase  = 2 * time.Millisecond
)

// document is the stored form. principal.Principal hides the hash from JSON,
// so it cannot be marshalled directly.
type document struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Email        string                 `json:"email"`
	PasswordHash string                 `json:"password_hash"`
	Role         string                 `json:"role,omitempty"`
	Permissions  []principal.Permission `json:"permissions,omitempty"`
	IsActive     bool                   `json:"is_active"`
	CreatedAt    time.Time              `json:"created_at"`
	LastLoginAt  *time.Time             `json:"last_login_at,omitempty"`
}

func toDocument(p principal.Principal) document {
	return document{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		Permissions:  p.Permissions,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		LastLoginAt:  p.LastLoginAt,
	}
}

func (d document) principal(kind principal.Kind) principal.Principal {
	return principal.Principal{
		ID:           d.ID,
		Kind:         kind,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Permissions:  d.Permissions,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		LastLoginAt:  d.LastLoginAt,
	}
}

type Store struct {
	rdb    redis.UniversalClient
	prom   *observability.Prom
	users  *namespace
	admins *namespace
}

func NewStore(rdb redis.UniversalClient, prefix string, prom *observability.Prom) *Store {
	if prefix == "" {
		prefix = "authgate"
	}
	return &Store{
		rdb:    rdb,
		prom:   prom,
		users:  &namespace{rdb: rdb, prom: prom, kind: principal.KindUser, prefix: prefix + ":user"},
		admins: &namespace{rdb: rdb, prom: prom, kind: principal.KindAdmin, prefix: prefix + ":admin"},
	}
}

func (s *Store) Users() repo.Namespace  { return s.users }
func (s *Store) Admins() repo.Namespace { return s.admins }

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Purge deletes both namespaces in one MULTI/EXEC. The index sets are
// watched, so a concurrent registration forces a retry instead of being
// silently counted wrong.
func (s *Store) Purge(ctx context.Context) (repo.PurgeCounts, error) {
	var counts repo.PurgeCounts

	purge := func(tx *redis.Tx) error {
		users, err := tx.SMembers(ctx, s.users.indexKey()).Result()
		if err != nil {
			return err
		}
		admins, err := tx.SMembers(ctx, s.admins.indexKey()).Result()
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(users)+len(admins)+2)
		for _, email := range users {
			keys = append(keys, s.users.docKey(email))
		}
		for _, email := range admins {
			keys = append(keys, s.admins.docKey(email))
		}
		keys = append(keys, s.users.indexKey(), s.admins.indexKey())

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			return nil
		})
		if err != nil {
			return err
		}

		counts = repo.PurgeCounts{
			UsersBefore:   int64(len(users)),
			AdminsBefore:  int64(len(admins)),
			UsersDeleted:  int64(len(users)),
			AdminsDeleted: int64(len(admins)),
		}
		return nil
	}

	err := s.prom.ObserveDB("purge", func() error {
		return watchRetry(ctx, s.rdb, purge, s.users.indexKey(), s.admins.indexKey())
	})
	if err != nil {
		return repo.PurgeCounts{}, fmt.Errorf("purge: %w", err)
	}
	return counts, nil
}

// watchRetry reruns fn while a watched key changes under it. Any other
// error, including the caller's own sentinels, stops immediately.
func watchRetry(ctx context.Context, rdb redis.UniversalClient, fn func(*redis.Tx) error, keys ...string) error {
	backoff := retry.WithMaxRetries(maxTxRetries-1, retry.NewExponential(txRetryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := rdb.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(err)
		}
		return err
	})
}

type namespace struct {
	rdb    redis.UniversalClient
	prom   *observability.Prom
	kind   principal.Kind
	prefix string
}

func (n *namespace) docKey(email string) string { return n.prefix + ":email:" + email }
func (n *namespace) indexKey() string           { return n.prefix + ":index" }

func (n *namespace) op(name string) string { return string(n.kind) + "s." + name }

func (n *namespace) FindByEmail(ctx context.Context, email string) (principal.Principal, error) {
	var raw []byte

	err := n.prom.ObserveDB(n.op("find_by_email"), func() error {
		var err error
		raw, err = n.rdb.Get(ctx, n.docKey(email)).Bytes()
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return principal.Principal{}, repo.ErrNotFound
		}
		return principal.Principal{}, err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return principal.Principal{}, fmt.Errorf("decode %s: %w", n.docKey(email), err)
	}
	return doc.principal(n.kind), nil
}

// Create relies on SETNX for uniqueness; the index is only updated in the
// same transaction.
func (n *namespace) Create(ctx context.Context, p principal.Principal) (principal.Principal, error) {
	p.Kind = n.kind
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(toDocument(p))
	if err != nil {
		return principal.Principal{}, err
	}

	var created *redis.BoolCmd
	err = n.prom.ObserveDB(n.op("create"), func() error {
		_, err := n.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			created = pipe.SetNX(ctx, n.docKey(p.Email), raw, 0)
			pipe.SAdd(ctx, n.indexKey(), p.Email)
			return nil
		})
		return err
	})
	if err != nil {
		return principal.Principal{}, err
	}

	if !created.Val() {
		return principal.Principal{}, repo.ErrEmailTaken
	}
	return p, nil
}

// TouchLastLogin rewrites the document with only last_login_at changed.
func (n *namespace) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	key := n.docKey(email)

	touch := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repo.ErrNotFound
			}
			return err
		}

		var doc document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		doc.LastLoginAt = &at

		updated, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetXX(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	return n.prom.ObserveDB(n.op("touch_last_login"), func() error {
		return watchRetry(ctx, n.rdb, touch, key)
	})
}

func (n *namespace) Count(ctx context.Context) (int64, error) {
	var count int64
	err := n.prom.ObserveDB(n.op("count"), func() error {
		var err error
		count, err = n.rdb.SCard(ctx, n.indexKey()).Result()
		return err
	})
	return count, err
}

func (n *namespace) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64

	deleteAll := func(tx *redis.Tx) error {
		emails, err := tx.SMembers(ctx, n.indexKey()).Result()
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(emails)+1)
		for _, email := range emails {
			keys = append(keys, n.docKey(email))
		}
		keys = append(keys, n.indexKey())

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = int64(len(emails))
		return nil
	}

	err := n.prom.ObserveDB(n.op("delete_all"), func() error {
		return watchRetry(ctx, n.rdb, deleteAll, n.indexKey())
	})
	return deleted, err
}
