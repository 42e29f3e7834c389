package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/notifications"
	"github.com/geocoder89/authgate/internal/repo"
	"github.com/geocoder89/authgate/internal/repo/memory"
	"github.com/geocoder89/authgate/internal/security"
	"github.com/geocoder89/authgate/internal/validation"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testSecret   = "s3cret"
	goodPassword = "Aa1!aaaa"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	store  *memory.Store
	hasher *security.Hasher
	logs   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.NewStore(), nil)
}

func newFixtureWithStore(t *testing.T, store *memory.Store, wrap func(repo.Store) repo.Store) *fixture {
	t.Helper()

	h, err := security.NewHasher(4)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	var s repo.Store = store
	if wrap != nil {
		s = wrap(store)
	}

	logs := &bytes.Buffer{}
	svc, err := NewService(Options{
		Store:       s,
		Hasher:      h,
		AdminSecret: testSecret,
		Logger:      slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Now:         func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	return &fixture{svc: svc, store: store, hasher: h, logs: logs}
}

// seedAdmin inserts an admin directly so tests can control activation and
// permissions.
func (f *fixture) seedAdmin(t *testing.T, email string, active bool, perms ...principal.Permission) principal.Principal {
	t.Helper()

	hash, err := f.hasher.Hash(goodPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	p, err := f.store.Admins().Create(context.Background(), principal.Principal{
		Email:        email,
		Name:         "Seeded Admin",
		PasswordHash: hash,
		Role:         principal.RoleAdmin,
		Permissions:  perms,
		IsActive:     active,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return p
}

func count(t *testing.T, ns repo.Namespace) int64 {
	t.Helper()
	n, err := ns.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	return n
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (err=%v)", got, kind, err)
	}
}

// faultStore fails selected operations on top of a real store.
type faultStore struct {
	repo.Store
	findErr   error
	createErr error
	touchErr  error
	purgeErr  error
}

func (f *faultStore) Users() repo.Namespace  { return &faultNamespace{Namespace: f.Store.Users(), f: f} }
func (f *faultStore) Admins() repo.Namespace { return &faultNamespace{Namespace: f.Store.Admins(), f: f} }

func (f *faultStore) Purge(ctx context.Context) (repo.PurgeCounts, error) {
	if f.purgeErr != nil {
		return repo.PurgeCounts{}, f.purgeErr
	}
	return f.Store.Purge(ctx)
}

type faultNamespace struct {
	repo.Namespace
	f *faultStore
}

func (n *faultNamespace) FindByEmail(ctx context.Context, email string) (principal.Principal, error) {
	if n.f.findErr != nil {
		return principal.Principal{}, n.f.findErr
	}
	return n.Namespace.FindByEmail(ctx, email)
}

func (n *faultNamespace) Create(ctx context.Context, p principal.Principal) (principal.Principal, error) {
	if n.f.createErr != nil {
		return principal.Principal{}, n.f.createErr
	}
	return n.Namespace.Create(ctx, p)
}

func (n *faultNamespace) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	if n.f.touchErr != nil {
		return n.f.touchErr
	}
	return n.Namespace.TouchLastLogin(ctx, email, at)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notifications.PurgeNotice
	err     error
}

func (r *recordingNotifier) NotifyPurge(ctx context.Context, n notifications.PurgeNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return r.err
}

func TestNewService_RequiresDependencies(t *testing.T) {
	h, _ := security.NewHasher(4)
	store := memory.NewStore()

	tests := []struct {
		name string
		opts Options
	}{
		{"no store", Options{Hasher: h, AdminSecret: "x"}},
		{"no hasher", Options{Store: store, AdminSecret: "x"}},
		{"no secret", Options{Store: store, Hasher: h}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(tt.opts); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	svc, err := NewService(Options{Store: store, Hasher: h, AdminSecret: "x", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil || svc == nil {
		t.Fatalf("NewService: %v", err)
	}
}

func TestErrorHelpers(t *testing.T) {
	err := error(&Error{Kind: KindInvalidCredentials, Message: "nope"})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("errors.Is should match on kind")
	}
	if errors.Is(err, ErrEmailTaken) {
		t.Fatalf("errors.Is matched a different kind")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("unknown errors must classify as internal")
	}

	cause := errors.New("conn reset")
	wrapped := storeError(msgServerError, cause)
	if !errors.Is(wrapped, cause) {
		t.Fatalf("store error should unwrap to its cause")
	}
	if !wrapped.Kind.Retryable() || KindInvalidSecret.Retryable() {
		t.Fatalf("only infrastructure kinds are retryable")
	}

	classes := map[Kind]Class{
		KindMissingFields:          ClassBadRequest,
		KindInvalidEmail:           ClassBadRequest,
		KindInvalidName:            ClassBadRequest,
		KindWeakPassword:           ClassBadRequest,
		KindInvalidCredentials:     ClassUnauthorized,
		KindInvalidSecret:          ClassForbidden,
		KindAccountDeactivated:     ClassForbidden,
		KindInsufficientPermission: ClassForbidden,
		KindEmailTaken:             ClassConflict,
		KindStoreUnavailable:       ClassInternal,
		KindInternal:               ClassInternal,
	}
	for k, want := range classes {
		if got := k.Class(); got != want {
			t.Errorf("%s.Class() = %d, want %d", k, got, want)
		}
	}
}

func TestMissingFields_ReportsJSONNames(t *testing.T) {
	got := missingFields(AdminRegistration{Registration: Registration{Email: "a@b.com"}})
	want := []string{"password", "name", "secretKey"}
	if !slices.Equal(got, want) {
		t.Fatalf("missing = %v, want %v", got, want)
	}

	if got := missingFields(Credentials{Email: "a@b.com", Password: "x"}); got != nil {
		t.Fatalf("nothing should be missing, got %v", got)
	}
}

func TestRegisterAdmin_ScenarioA(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.RegisterAdmin(context.Background(), AdminRegistration{
		Registration: Registration{Email: "a@b.com", Password: goodPassword, Name: "Alice Admin"},
		SecretKey:    testSecret,
	})
	if err != nil {
		t.Fatalf("RegisterAdmin: %v", err)
	}

	if out.Email != "a@b.com" || out.Name != "Alice Admin" || out.Role != principal.RoleAdmin {
		t.Fatalf("unexpected summary: %+v", out)
	}
	if !slices.Equal(out.Permissions, principal.DefaultAdminPermissions()) {
		t.Fatalf("permissions = %v", out.Permissions)
	}

	stored, err := f.store.Admins().FindByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if !stored.IsActive {
		t.Fatalf("new admin should be active")
	}
	if stored.PasswordHash == goodPassword || !f.hasher.Verify(goodPassword, stored.PasswordHash) {
		t.Fatalf("password must be stored hashed")
	}
	if strings.Contains(f.logs.String(), goodPassword) {
		t.Fatalf("password leaked into logs")
	}
}

func TestRegisterUser_ScenarioB_ReportsEveryFailedRule(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterUser(context.Background(), Registration{
		Email: "bob@example.com", Password: "password", Name: "Bob",
	})
	wantKind(t, err, KindWeakPassword)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	want := []validation.Rule{validation.RuleUpper, validation.RuleDigit, validation.RuleSpecial}
	if !slices.Equal(e.Failed, want) {
		t.Fatalf("failed rules = %v, want %v", e.Failed, want)
	}
	if e.Message != "Password must contain: one uppercase letter, one number, one special character" {
		t.Fatalf("message = %q", e.Message)
	}
	if count(t, f.store.Users()) != 0 {
		t.Fatalf("weak password must not persist anything")
	}
}

func TestRegister_ValidationOrder(t *testing.T) {
	tests := []struct {
		name string
		in   AdminRegistration
		want Kind
	}{
		{
			name: "missing beats everything",
			in:   AdminRegistration{Registration: Registration{Email: "not-an-email", Password: "x"}},
			want: KindMissingFields,
		},
		{
			name: "email before name",
			in:   AdminRegistration{Registration: Registration{Email: "bad", Password: "x", Name: "1"}, SecretKey: "wrong"},
			want: KindInvalidEmail,
		},
		{
			name: "name before password",
			in:   AdminRegistration{Registration: Registration{Email: "a@b.com", Password: "x", Name: "R2D2"}, SecretKey: "wrong"},
			want: KindInvalidName,
		},
		{
			name: "password before secret",
			in:   AdminRegistration{Registration: Registration{Email: "a@b.com", Password: "x", Name: "Al"}, SecretKey: "wrong"},
			want: KindWeakPassword,
		},
		{
			name: "secret after password",
			in:   AdminRegistration{Registration: Registration{Email: "a@b.com", Password: goodPassword, Name: "Al"}, SecretKey: "wrong"},
			want: KindInvalidSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.RegisterAdmin(context.Background(), tt.in)
			wantKind(t, err, tt.want)
			if count(t, f.store.Admins()) != 0 {
				t.Fatalf("rejected registration persisted a record")
			}
		})
	}
}

func TestRegisterAdmin_InvalidSecretBeforeUniqueness(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "a@b.com", true, principal.DefaultAdminPermissions()...)

	_, err := f.svc.RegisterAdmin(context.Background(), AdminRegistration{
		Registration: Registration{Email: "a@b.com", Password: goodPassword, Name: "Alice"},
		SecretKey:    "wrong",
	})
	wantKind(t, err, KindInvalidSecret)
}

func TestRegisterUser_SanitizesAndNormalizes(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.RegisterUser(context.Background(), Registration{
		Email: "  <Bob@Example.COM>  ", Password: goodPassword, Name: " <Bob Smith> ",
	})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if out.Email != "bob@example.com" || out.Name != "Bob Smith" {
		t.Fatalf("summary = %+v", out)
	}
	if out.Role != "" || out.Permissions != nil {
		t.Fatalf("user summary must not carry admin fields: %+v", out)
	}

	if _, err := f.svc.LoginUser(context.Background(), Credentials{Email: "BOB@example.com", Password: goodPassword}); err != nil {
		t.Fatalf("login with different case: %v", err)
	}
}

func TestRegisterUser_DuplicateLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := Registration{Email: "dup@example.com", Password: goodPassword, Name: "Dup"}

	first, err := f.svc.RegisterUser(ctx, in)
	if err != nil {
		t.Fatalf("first register: %v", err)
	}

	in.Name = "Other"
	in.Password = "Zz9?zzzz"
	_, err = f.svc.RegisterUser(ctx, in)
	wantKind(t, err, KindEmailTaken)

	stored, err := f.store.Users().FindByEmail(ctx, "dup@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if stored.ID != first.ID || stored.Name != "Dup" || !f.hasher.Verify(goodPassword, stored.PasswordHash) {
		t.Fatalf("duplicate registration mutated the stored record: %+v", stored)
	}
	if count(t, f.store.Users()) != 1 {
		t.Fatalf("expected exactly one user")
	}
}

func TestRegisterUser_NamespacesAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.RegisterUser(ctx, Registration{Email: "same@example.com", Password: goodPassword, Name: "User"}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	_, err := f.svc.RegisterAdmin(ctx, AdminRegistration{
		Registration: Registration{Email: "same@example.com", Password: goodPassword, Name: "Admin"},
		SecretKey:    testSecret,
	})
	if err != nil {
		t.Fatalf("same email in the admin namespace should be allowed: %v", err)
	}
}

func TestRegisterUser_ScenarioE_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		taken   int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RegisterUser(context.Background(), Registration{
				Email: "race@example.com", Password: goodPassword, Name: "Racer",
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case KindOf(err) == KindEmailTaken:
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || taken != n-1 {
		t.Fatalf("created=%d taken=%d, want 1/%d", created, taken, n-1)
	}
}

func TestRegister_StoreFailureIsGeneric(t *testing.T) {
	f := newFixtureWithStore(t, memory.NewStore(), func(s repo.Store) repo.Store {
		return &faultStore{Store: s, createErr: errors.New("dial tcp 10.0.0.5:5432: connection refused")}
	})

	_, err := f.svc.RegisterUser(context.Background(), Registration{Email: "a@b.com", Password: goodPassword, Name: "Al"})
	wantKind(t, err, KindStoreUnavailable)

	var e *Error
	errors.As(err, &e)
	if e.Message != msgServerError || strings.Contains(e.Message, "10.0.0.5") {
		t.Fatalf("store failure leaked detail: %q", e.Message)
	}
}

func TestRegister_CanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.RegisterUser(ctx, Registration{Email: "a@b.com", Password: goodPassword, Name: "Al"})
	wantKind(t, err, KindStoreUnavailable)
}

func TestLogin_UnknownAndWrongPasswordAreIdentical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.RegisterUser(ctx, Registration{Email: "u@example.com", Password: goodPassword, Name: "User"}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	_, unknown := f.svc.LoginUser(ctx, Credentials{Email: "nobody@example.com", Password: goodPassword})
	_, wrong := f.svc.LoginUser(ctx, Credentials{Email: "u@example.com", Password: "Wrong1!xx"})

	wantKind(t, unknown, KindInvalidCredentials)
	wantKind(t, wrong, KindInvalidCredentials)
	if unknown.Error() != wrong.Error() {
		t.Fatalf("responses differ: %q vs %q", unknown, wrong)
	}
}

func TestLogin_InputChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.LoginAdmin(ctx, Credentials{Email: "a@b.com"})
	wantKind(t, err, KindMissingFields)

	_, err = f.svc.LoginAdmin(ctx, Credentials{Email: "a@@b.com", Password: "x"})
	wantKind(t, err, KindInvalidEmail)
}

func TestLogin_UpdatesLastLoginOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.RegisterUser(ctx, Registration{Email: "u@example.com", Password: goodPassword, Name: "User"}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	before, _ := f.store.Users().FindByEmail(ctx, "u@example.com")

	for i := 0; i < 2; i++ {
		out, err := f.svc.LoginUser(ctx, Credentials{Email: "u@example.com", Password: goodPassword})
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		if out.LastLoginAt == nil || !out.LastLoginAt.Equal(fixedNow) {
			t.Fatalf("last login = %v", out.LastLoginAt)
		}
	}

	after, _ := f.store.Users().FindByEmail(ctx, "u@example.com")
	if after.PasswordHash != before.PasswordHash {
		t.Fatalf("login rewrote the password hash")
	}
	if after.LastLoginAt == nil || !after.LastLoginAt.Equal(fixedNow) {
		t.Fatalf("stored last login = %v", after.LastLoginAt)
	}
	if count(t, f.store.Users()) != 1 {
		t.Fatalf("login must not create records")
	}
}

func TestLoginAdmin_ReturnsRoleAndPermissions(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "root@example.com", true, principal.DefaultAdminPermissions()...)

	out, err := f.svc.LoginAdmin(context.Background(), Credentials{Email: "root@example.com", Password: goodPassword})
	if err != nil {
		t.Fatalf("LoginAdmin: %v", err)
	}
	if out.Role != principal.RoleAdmin || len(out.Permissions) != 4 {
		t.Fatalf("summary = %+v", out)
	}
}

func TestLoginAdmin_ScenarioC_Deactivated(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "off@example.com", false, principal.DefaultAdminPermissions()...)

	_, err := f.svc.LoginAdmin(context.Background(), Credentials{Email: "off@example.com", Password: goodPassword})
	wantKind(t, err, KindAccountDeactivated)

	// disclosed even with a wrong password
	_, err = f.svc.LoginAdmin(context.Background(), Credentials{Email: "off@example.com", Password: "nope"})
	wantKind(t, err, KindAccountDeactivated)

	stored, _ := f.store.Admins().FindByEmail(context.Background(), "off@example.com")
	if stored.LastLoginAt != nil {
		t.Fatalf("deactivated admin must not get a last-login stamp")
	}
}

func TestLogin_StoreFailures(t *testing.T) {
	var fs *faultStore
	f := newFixtureWithStore(t, memory.NewStore(), func(s repo.Store) repo.Store {
		fs = &faultStore{Store: s}
		return fs
	})
	ctx := context.Background()

	if _, err := f.svc.RegisterUser(ctx, Registration{Email: "u@example.com", Password: goodPassword, Name: "User"}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	fs.touchErr = errors.New("write timeout")
	_, err := f.svc.LoginUser(ctx, Credentials{Email: "u@example.com", Password: goodPassword})
	wantKind(t, err, KindStoreUnavailable)

	fs.touchErr = nil
	fs.findErr = errors.New("connection reset")
	_, err = f.svc.LoginUser(ctx, Credentials{Email: "u@example.com", Password: goodPassword})
	wantKind(t, err, KindStoreUnavailable)
}

func gateRequest(email string) GateRequest {
	return GateRequest{AdminEmail: email, AdminPassword: goodPassword, SecretKey: testSecret}
}

func TestAuthorizeAdmin_Order(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		perms  []principal.Permission
		in     GateRequest
		want   Kind
	}{
		{
			name: "missing factor",
			in:   GateRequest{AdminEmail: "root@example.com", AdminPassword: goodPassword},
			want: KindMissingFields,
		},
		{
			name: "bad email before secret",
			in:   GateRequest{AdminEmail: "root", AdminPassword: goodPassword, SecretKey: "wrong"},
			want: KindInvalidEmail,
		},
		{
			name:   "secret before password",
			active: true,
			perms:  principal.DefaultAdminPermissions(),
			in:     GateRequest{AdminEmail: "root@example.com", AdminPassword: "wrong", SecretKey: "wrong"},
			want:   KindInvalidSecret,
		},
		{
			name: "unknown admin",
			in:   gateRequest("ghost@example.com"),
			want: KindInvalidCredentials,
		},
		{
			name:   "deactivated before password",
			active: false,
			perms:  principal.DefaultAdminPermissions(),
			in:     GateRequest{AdminEmail: "root@example.com", AdminPassword: "wrong", SecretKey: testSecret},
			want:   KindAccountDeactivated,
		},
		{
			name:   "wrong password",
			active: true,
			perms:  principal.DefaultAdminPermissions(),
			in:     GateRequest{AdminEmail: "root@example.com", AdminPassword: "wrong", SecretKey: testSecret},
			want:   KindInvalidCredentials,
		},
		{
			name:   "permission last",
			active: true,
			perms:  []principal.Permission{principal.PermRead, principal.PermWrite},
			in:     gateRequest("root@example.com"),
			want:   KindInsufficientPermission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedAdmin(t, "root@example.com", tt.active, tt.perms...)

			_, err := f.svc.AuthorizeAdmin(context.Background(), tt.in)
			wantKind(t, err, tt.want)
		})
	}
}

func TestAuthorizeAdmin_ReturnsIdentity(t *testing.T) {
	f := newFixture(t)
	seeded := f.seedAdmin(t, "root@example.com", true, principal.DefaultAdminPermissions()...)

	id, err := f.svc.AuthorizeAdmin(context.Background(), gateRequest("ROOT@example.com"))
	if err != nil {
		t.Fatalf("AuthorizeAdmin: %v", err)
	}
	if id.ID != seeded.ID || id.Email != "root@example.com" || id.Name != "Seeded Admin" {
		t.Fatalf("identity = %+v", id)
	}
	if !id.HasPermission(principal.PermDelete) {
		t.Fatalf("identity lost permissions")
	}
}

func TestAuthorizeAndPurge_ScenarioD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedAdmin(t, "reader@example.com", true, principal.PermRead)
	if _, err := f.svc.RegisterUser(ctx, Registration{Email: "u@example.com", Password: goodPassword, Name: "User"}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	_, err := f.svc.AuthorizeAndPurge(ctx, gateRequest("reader@example.com"))
	wantKind(t, err, KindInsufficientPermission)

	if count(t, f.store.Users()) != 1 || count(t, f.store.Admins()) != 1 {
		t.Fatalf("purge ran despite a failed gate")
	}
}

func TestAuthorizeAndPurge_DeletesEverything(t *testing.T) {
	store := memory.NewStore()
	f := newFixtureWithStore(t, store, nil)
	notifier := &recordingNotifier{err: errors.New("sink down")}
	f.svc.notifier = notifier
	ctx := context.Background()

	f.seedAdmin(t, "root@example.com", true, principal.DefaultAdminPermissions()...)
	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := f.svc.RegisterUser(ctx, Registration{Email: email, Password: goodPassword, Name: "User"}); err != nil {
			t.Fatalf("RegisterUser: %v", err)
		}
	}

	report, err := f.svc.AuthorizeAndPurge(ctx, gateRequest("root@example.com"))
	if err != nil {
		t.Fatalf("AuthorizeAndPurge: %v", err)
	}

	if report.PreviousCounts != (NamespaceCounts{Users: 2, Admins: 1}) {
		t.Fatalf("previous = %+v", report.PreviousCounts)
	}
	if report.Deleted != (NamespaceCounts{Users: 2, Admins: 1}) {
		t.Fatalf("deleted = %+v", report.Deleted)
	}
	if report.DeletedBy.Email != "root@example.com" || !report.Timestamp.Equal(fixedNow) {
		t.Fatalf("report = %+v", report)
	}
	if count(t, store.Users()) != 0 || count(t, store.Admins()) != 0 {
		t.Fatalf("records survived the purge")
	}

	if len(notifier.notices) != 1 || notifier.notices[0].UsersDeleted != 2 {
		t.Fatalf("notices = %+v", notifier.notices)
	}

	logs := f.logs.String()
	if !strings.Contains(logs, "[CRITICAL] all records deleted") || !strings.Contains(logs, `"audit":true`) {
		t.Fatalf("missing commit-point log: %s", logs)
	}
}

func TestPurgeAll_RejectsIdentityWithoutDelete(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PurgeAll(context.Background(), principal.Identity{ID: "x", Permissions: []principal.Permission{principal.PermRead}})
	wantKind(t, err, KindInsufficientPermission)

	_, err = f.svc.PurgeAll(context.Background(), principal.Identity{Permissions: principal.DefaultAdminPermissions()})
	wantKind(t, err, KindInsufficientPermission)
}

func TestPurgeAll_StoreFailure(t *testing.T) {
	f := newFixtureWithStore(t, memory.NewStore(), func(s repo.Store) repo.Store {
		return &faultStore{Store: s, purgeErr: errors.New("tx aborted")}
	})

	_, err := f.svc.PurgeAll(context.Background(), principal.Identity{ID: "x", Permissions: principal.DefaultAdminPermissions()})
	wantKind(t, err, KindStoreUnavailable)

	if strings.Contains(f.logs.String(), "[CRITICAL]") {
		t.Fatalf("commit point logged for a failed purge")
	}
}

func TestRegisterAndLogin_LongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	long := "Aa1!" + strings.Repeat("a", 80)

	if _, err := f.svc.RegisterUser(ctx, Registration{Email: "long@b.com", Password: long, Name: "Long Pw"}); err != nil {
		t.Fatalf("RegisterUser with %d-byte password: %v", len(long), err)
	}
	if _, err := f.svc.LoginUser(ctx, Credentials{Email: "long@b.com", Password: long}); err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	if _, err := f.svc.RegisterAdmin(ctx, AdminRegistration{
		Registration: Registration{Email: "long@b.com", Password: long, Name: "Long Pw"},
		SecretKey:    testSecret,
	}); err != nil {
		t.Fatalf("RegisterAdmin with %d-byte password: %v", len(long), err)
	}
	if _, err := f.svc.LoginAdmin(ctx, Credentials{Email: "long@b.com", Password: long}); err != nil {
		t.Fatalf("LoginAdmin: %v", err)
	}
}
