package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/google/uuid"
)

// Store keeps both namespaces in process memory behind one lock, so Purge
// is a single critical section.
type Store struct {
	mu     sync.RWMutex
	users  map[string]principal.Principal // keyed by email
	admins map[string]principal.Principal
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]principal.Principal),
		admins: make(map[string]principal.Principal),
	}
}

func (s *Store) Users() repo.Namespace {
	return &namespace{store: s, kind: principal.KindUser}
}

func (s *Store) Admins() repo.Namespace {
	return &namespace{store: s, kind: principal.KindAdmin}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Purge(ctx context.Context) (repo.PurgeCounts, error) {
	if err := ctx.Err(); err != nil {
		return repo.PurgeCounts{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := repo.PurgeCounts{
		UsersBefore:   int64(len(s.users)),
		AdminsBefore:  int64(len(s.admins)),
		UsersDeleted:  int64(len(s.users)),
		AdminsDeleted: int64(len(s.admins)),
	}

	s.users = make(map[string]principal.Principal)
	s.admins = make(map[string]principal.Principal)

	return counts, nil
}

func (s *Store) items(kind principal.Kind) map[string]principal.Principal {
	if kind == principal.KindAdmin {
		return s.admins
	}
	return s.users
}

type namespace struct {
	store *Store
	kind  principal.Kind
}

func (n *namespace) FindByEmail(ctx context.Context, email string) (principal.Principal, error) {
	if err := ctx.Err(); err != nil {
		return principal.Principal{}, err
	}

	n.store.mu.RLock()
	p, ok := n.store.items(n.kind)[email]
	n.store.mu.RUnlock()

	if !ok {
		return principal.Principal{}, repo.ErrNotFound
	}
	return clone(p), nil
}

func (n *namespace) Create(ctx context.Context, p principal.Principal) (principal.Principal, error) {
	if err := ctx.Err(); err != nil {
		return principal.Principal{}, err
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Kind = n.kind

	n.store.mu.Lock()
	defer n.store.mu.Unlock()

	items := n.store.items(n.kind)
	if _, exists := items[p.Email]; exists {
		return principal.Principal{}, repo.ErrEmailTaken
	}

	items[p.Email] = clone(p)
	return clone(p), nil
}

func (n *namespace) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.store.mu.Lock()
	defer n.store.mu.Unlock()

	items := n.store.items(n.kind)
	p, ok := items[email]
	if !ok {
		return repo.ErrNotFound
	}

	p.LastLoginAt = &at
	items[email] = p
	return nil
}

func (n *namespace) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n.store.mu.RLock()
	defer n.store.mu.RUnlock()

	return int64(len(n.store.items(n.kind))), nil
}

func (n *namespace) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n.store.mu.Lock()
	defer n.store.mu.Unlock()

	deleted := int64(len(n.store.items(n.kind)))
	if n.kind == principal.KindAdmin {
		n.store.admins = make(map[string]principal.Principal)
	} else {
		n.store.users = make(map[string]principal.Principal)
	}
	return deleted, nil
}

func clone(p principal.Principal) principal.Principal {
	p.Permissions = slices.Clone(p.Permissions)
	if p.LastLoginAt != nil {
		t := *p.LastLoginAt
		p.LastLoginAt = &t
	}
	return p
}
