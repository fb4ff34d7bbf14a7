package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetboard/fleetboard/internal/authz"
)

const otherGuildID uint64 = 800100200300400500

func newEnumStore() *fakeStore {
	return &fakeStore{
		users: map[uint64]authz.User{
			123456789: {DiscordID: 123456789, Name: "Pilot"},
			42:        {DiscordID: 42, Name: "Overseer", IsAdmin: true},
		},
		roles: map[uint64]map[uint64][]uint64{
			123456789: {guildID: {roleAlpha}},
		},
		grants: []authz.Grant{
			// C: view+create -> manageable.
			{CategoryID: 1, RoleID: roleAlpha, Capability: authz.Capability{View: true, Create: true}},
			// View-only -> not manageable.
			{CategoryID: 2, RoleID: roleAlpha, Capability: authz.Capability{View: true}},
			// Create-only, no view -> manageable regardless.
			{CategoryID: 3, RoleID: roleAlpha, Capability: authz.Capability{Create: true}},
			// Manage-only.
			{CategoryID: 4, RoleID: roleAlpha, Capability: authz.Capability{Manage: true}},
			// Grant in another guild's category, same role set semantics.
			{CategoryID: 5, RoleID: roleAlpha, Capability: authz.Capability{Manage: true}},
		},
		categories: []authz.CategoryRef{
			{ID: 1, GuildID: guildID, Name: "Stratops"},
			{ID: 2, GuildID: guildID, Name: "Mining"},
			{ID: 3, GuildID: guildID, Name: "Home Defense"},
			{ID: 4, GuildID: guildID, Name: "Roams"},
			{ID: 5, GuildID: otherGuildID, Name: "Elsewhere"},
			// D: no grants at all.
			{ID: 6, GuildID: guildID, Name: "Capitals"},
		},
	}
}

func categoryIDs(cats []authz.CategoryRef) []int32 {
	ids := make([]int32, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	return ids
}

func TestManageableCategories(t *testing.T) {
	enum := authz.NewEnumerator(newEnumStore())
	user := &authz.User{DiscordID: 123456789}

	cats, err := enum.ManageableCategories(context.Background(), user, guildID)
	require.NoError(t, err)

	// Name-ordered: Home Defense (3), Roams (4), Stratops (1).
	// Excludes view-only (2), ungranted (6) and the other guild's category (5).
	assert.Equal(t, []int32{3, 4, 1}, categoryIDs(cats))
}

func TestManageableCategoriesViewOnlyExcluded(t *testing.T) {
	enum := authz.NewEnumerator(newEnumStore())
	user := &authz.User{DiscordID: 123456789}

	cats, err := enum.ManageableCategories(context.Background(), user, guildID)
	require.NoError(t, err)
	assert.NotContains(t, categoryIDs(cats), int32(2))
	assert.Contains(t, categoryIDs(cats), int32(3))
}

func TestManageableCategoriesAdminGetsAll(t *testing.T) {
	store := newEnumStore()
	enum := authz.NewEnumerator(store)
	admin := &authz.User{DiscordID: 42, IsAdmin: true}

	cats, err := enum.ManageableCategories(context.Background(), admin, guildID)
	require.NoError(t, err)
	assert.Len(t, cats, 5)
	assert.Zero(t, store.roleQueries)
	assert.Zero(t, store.grantQueries)
}

func TestManageableCategoriesNoRoles(t *testing.T) {
	store := newEnumStore()
	store.roles = map[uint64]map[uint64][]uint64{}
	enum := authz.NewEnumerator(store)

	cats, err := enum.ManageableCategories(context.Background(), &authz.User{DiscordID: 123456789}, guildID)
	require.NoError(t, err)
	assert.Empty(t, cats)
	// Nothing to scan when the role set is empty.
	assert.Zero(t, store.grantQueries)
}

func TestManageableCategoriesAllGuilds(t *testing.T) {
	enum := authz.NewEnumerator(newEnumStore())
	user := &authz.User{DiscordID: 123456789}

	cats, err := enum.ManageableCategoriesAllGuilds(context.Background(), user)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int32{1, 3, 4, 5}, categoryIDs(cats))

	admin := &authz.User{DiscordID: 42, IsAdmin: true}
	cats, err = enum.ManageableCategoriesAllGuilds(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, cats, 6)
}

func TestViewableCategoryIDs(t *testing.T) {
	enum := authz.NewEnumerator(newEnumStore())
	user := &authz.User{DiscordID: 123456789}

	ids, err := enum.ViewableCategoryIDs(context.Background(), user, guildID)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, ids)
}

func TestCreatableCategoryIDs(t *testing.T) {
	enum := authz.NewEnumerator(newEnumStore())
	user := &authz.User{DiscordID: 123456789}

	ids, err := enum.CreatableCategoryIDs(context.Background(), user, guildID)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 3}, ids)
}

func TestViewableCategoryIDsAdmin(t *testing.T) {
	enum := authz.NewEnumerator(newEnumStore())
	admin := &authz.User{DiscordID: 42, IsAdmin: true}

	ids, err := enum.ViewableCategoryIDs(context.Background(), admin, guildID)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4, 6}, ids)
}

// Union across two roles where neither alone is enough only matters for the
// enumerator when bits come from different grants on the same category.
func TestManageableUnionAcrossRoles(t *testing.T) {
	store := newEnumStore()
	store.roles[123456789][guildID] = []uint64{roleAlpha, roleBeta}
	store.grants = []authz.Grant{
		{CategoryID: 1, RoleID: roleAlpha, Capability: authz.Capability{View: true}},
		{CategoryID: 1, RoleID: roleBeta, Capability: authz.Capability{Create: true}},
	}
	enum := authz.NewEnumerator(store)

	cats, err := enum.ManageableCategories(context.Background(), &authz.User{DiscordID: 123456789}, guildID)
	require.NoError(t, err)
	assert.Equal(t, []int32{1}, categoryIDs(cats))
}
