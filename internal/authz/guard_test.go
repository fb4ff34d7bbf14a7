package authz_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetboard/fleetboard/internal/authz"
)

// fakeStore is an in-memory Store for guard and enumerator tests.
type fakeStore struct {
	users      map[uint64]authz.User
	roles      map[uint64]map[uint64][]uint64 // user -> guild -> role ids
	grants     []authz.Grant
	categories []authz.CategoryRef

	roleQueries  int
	grantQueries int
}

func (f *fakeStore) FindUser(ctx context.Context, discordID uint64) (*authz.User, error) {
	if u, ok := f.users[discordID]; ok {
		return &u, nil
	}
	return nil, nil
}

func (f *fakeStore) RoleIDs(ctx context.Context, userID, guildID uint64) ([]uint64, error) {
	f.roleQueries++
	return f.roles[userID][guildID], nil
}

func (f *fakeStore) AllRoleIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var all []uint64
	for _, ids := range f.roles[userID] {
		all = append(all, ids...)
	}
	return all, nil
}

func (f *fakeStore) CategoryGrants(ctx context.Context, categoryID int32, roleIDs []uint64) ([]authz.Grant, error) {
	f.grantQueries++
	held := make(map[uint64]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = struct{}{}
	}
	var out []authz.Grant
	for _, g := range f.grants {
		if g.CategoryID != categoryID {
			continue
		}
		if _, ok := held[g.RoleID]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) GrantsForRoles(ctx context.Context, roleIDs []uint64) ([]authz.Grant, error) {
	f.grantQueries++
	held := make(map[uint64]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = struct{}{}
	}
	var out []authz.Grant
	for _, g := range f.grants {
		if _, ok := held[g.RoleID]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) CategoriesByGuild(ctx context.Context, guildID uint64) ([]authz.CategoryRef, error) {
	var out []authz.CategoryRef
	for _, c := range f.categories {
		if c.GuildID == guildID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CategoriesByIDs(ctx context.Context, guildID uint64, ids []int32) ([]authz.CategoryRef, error) {
	keep := make(map[int32]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	var out []authz.CategoryRef
	for _, c := range f.categories {
		if c.GuildID != guildID {
			continue
		}
		if _, ok := keep[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) AllCategories(ctx context.Context) ([]authz.CategoryRef, error) {
	return f.categories, nil
}

type fakeSession string

func (s fakeSession) User() string { return string(s) }

func sessionFor(id uint64) fakeSession {
	return fakeSession(strconv.FormatUint(id, 10))
}

const (
	guildID   uint64 = 900100200300400500
	roleAlpha uint64 = 111
	roleBeta  uint64 = 222
)

// newScenarioStore builds the store behind most guard tests: user 123456789
// holds role 111 in the guild, category 1 grants (view, create) to that role,
// category 2 has no grants at all.
func newScenarioStore() *fakeStore {
	return &fakeStore{
		users: map[uint64]authz.User{
			123456789: {DiscordID: 123456789, Name: "Pilot", IsAdmin: false},
			42:        {DiscordID: 42, Name: "Overseer", IsAdmin: true},
		},
		roles: map[uint64]map[uint64][]uint64{
			123456789: {guildID: {roleAlpha}},
		},
		grants: []authz.Grant{
			{CategoryID: 1, RoleID: roleAlpha, Capability: authz.Capability{View: true, Create: true}},
		},
		categories: []authz.CategoryRef{
			{ID: 1, GuildID: guildID, Name: "Stratops"},
			{ID: 2, GuildID: guildID, Name: "Mining"},
		},
	}
}

func TestRequireCreateGrantedManageDenied(t *testing.T) {
	store := newScenarioStore()
	guard := authz.NewGuard(store)

	user, err := guard.Require(context.Background(), sessionFor(123456789), authz.CategoryCreate(guildID, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789), user.DiscordID)
	assert.False(t, user.IsAdmin)

	_, err = guard.Require(context.Background(), sessionFor(123456789), authz.CategoryManage(guildID, 1))
	var denied *authz.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, uint64(123456789), denied.UserID)
	assert.Contains(t, denied.Reason, "manage")
}

func TestRequireAdminOverride(t *testing.T) {
	store := newScenarioStore()
	guard := authz.NewGuard(store)

	// Admin with zero roles and zero grants satisfies every variant.
	perms := [][]authz.Permission{
		{authz.Admin()},
		{authz.CategoryView(guildID, 2)},
		{authz.CategoryCreate(guildID, 2)},
		{authz.CategoryManage(guildID, 2)},
		{authz.Admin(), authz.CategoryManage(guildID, 1), authz.CategoryView(guildID, 2)},
	}
	for _, ps := range perms {
		user, err := guard.Require(context.Background(), sessionFor(42), ps...)
		require.NoError(t, err)
		assert.True(t, user.IsAdmin)
	}
	// The override never touches membership or grant lookups.
	assert.Zero(t, store.roleQueries)
	assert.Zero(t, store.grantQueries)
}

func TestRequireAdminDeniedForRegularUser(t *testing.T) {
	guard := authz.NewGuard(newScenarioStore())

	_, err := guard.Require(context.Background(), sessionFor(123456789), authz.Admin())
	var denied *authz.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Contains(t, denied.Reason, "admin")
}

func TestRequireNoGrantsDeniesAllBits(t *testing.T) {
	guard := authz.NewGuard(newScenarioStore())

	for _, perm := range []authz.Permission{
		authz.CategoryView(guildID, 2),
		authz.CategoryCreate(guildID, 2),
		authz.CategoryManage(guildID, 2),
	} {
		_, err := guard.Require(context.Background(), sessionFor(123456789), perm)
		var denied *authz.AccessDeniedError
		require.ErrorAs(t, err, &denied, "permission %s", perm)
	}
}

func TestRequireUnauthenticated(t *testing.T) {
	guard := authz.NewGuard(newScenarioStore())

	for _, perms := range [][]authz.Permission{
		nil,
		{authz.Admin()},
		{authz.CategoryView(guildID, 1)},
	} {
		_, err := guard.Require(context.Background(), fakeSession(""), perms...)
		assert.ErrorIs(t, err, authz.ErrUserNotInSession)
	}
}

func TestRequireGhostSession(t *testing.T) {
	guard := authz.NewGuard(newScenarioStore())

	_, err := guard.Require(context.Background(), sessionFor(999999999))
	var notInDB *authz.UserNotInDatabaseError
	require.ErrorAs(t, err, &notInDB)
	assert.Equal(t, uint64(999999999), notInDB.UserID)
}

func TestRequireCorruptedSessionIdentifier(t *testing.T) {
	guard := authz.NewGuard(newScenarioStore())

	_, err := guard.Require(context.Background(), fakeSession("not-a-snowflake"))
	var invalid *authz.InvalidIdentifierError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "not-a-snowflake", invalid.Raw)
}

func TestRequireEmptyPermissionListIsLoginOnly(t *testing.T) {
	guard := authz.NewGuard(newScenarioStore())

	user, err := guard.Require(context.Background(), sessionFor(123456789))
	require.NoError(t, err)
	assert.Equal(t, "Pilot", user.Name)
}

func TestRequireFirstFailureWins(t *testing.T) {
	store := newScenarioStore()
	guard := authz.NewGuard(store)

	// Both permissions would fail; the reported denial must come from the
	// first one in list order.
	_, err := guard.Require(context.Background(), sessionFor(123456789),
		authz.CategoryManage(guildID, 1), authz.Admin())
	var denied *authz.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Contains(t, denied.Reason, "manage")

	_, err = guard.Require(context.Background(), sessionFor(123456789),
		authz.Admin(), authz.CategoryManage(guildID, 1))
	require.ErrorAs(t, err, &denied)
	assert.Contains(t, denied.Reason, "admin")
}

func TestRequireCachesRoleLookupPerGuild(t *testing.T) {
	store := newScenarioStore()
	guard := authz.NewGuard(store)

	_, err := guard.Require(context.Background(), sessionFor(123456789),
		authz.CategoryView(guildID, 1), authz.CategoryCreate(guildID, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, store.roleQueries)
	assert.Equal(t, 2, store.grantQueries)
}

func TestRequireUnionAcrossRoles(t *testing.T) {
	store := newScenarioStore()
	store.roles[123456789][guildID] = []uint64{roleAlpha, roleBeta}
	store.grants = []authz.Grant{
		{CategoryID: 1, RoleID: roleAlpha, Capability: authz.Capability{View: true}},
		{CategoryID: 1, RoleID: roleBeta, Capability: authz.Capability{Manage: true}},
	}
	guard := authz.NewGuard(store)

	// View from role alpha, manage from role beta.
	_, err := guard.Require(context.Background(), sessionFor(123456789),
		authz.CategoryView(guildID, 1), authz.CategoryManage(guildID, 1))
	require.NoError(t, err)

	// Create is granted by neither role.
	_, err = guard.Require(context.Background(), sessionFor(123456789),
		authz.CategoryCreate(guildID, 1))
	var denied *authz.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Contains(t, denied.Reason, "create")
}

func TestAllowed(t *testing.T) {
	store := newScenarioStore()
	guard := authz.NewGuard(store)

	pilot := &authz.User{DiscordID: 123456789}
	overseer := &authz.User{DiscordID: 42, IsAdmin: true}

	ok, err := guard.Allowed(context.Background(), pilot, authz.CategoryCreate(guildID, 1))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Allowed(context.Background(), pilot, authz.CategoryManage(guildID, 1))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = guard.Allowed(context.Background(), pilot, authz.Admin())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = guard.Allowed(context.Background(), overseer, authz.CategoryManage(guildID, 2))
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingStore struct {
	fakeStore
	err error
}

func (f *failingStore) RoleIDs(ctx context.Context, userID, guildID uint64) ([]uint64, error) {
	return nil, f.err
}

// Infrastructure failures surface as plain errors, never as denials.
func TestRequireStoreFailurePropagates(t *testing.T) {
	store := &failingStore{fakeStore: *newScenarioStore(), err: errors.New("connection refused")}
	guard := authz.NewGuard(store)

	_, err := guard.Require(context.Background(), sessionFor(123456789), authz.CategoryView(guildID, 1))
	require.Error(t, err)

	var denied *authz.AccessDeniedError
	assert.False(t, errors.As(err, &denied))
	assert.ErrorContains(t, err, "connection refused")
}
