package authz

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Enumerator answers the inverse query: which categories can a user touch.
// It shares the Guard's store and capability fold but scans grants for every
// role the user holds instead of checking one category.
type Enumerator struct {
	store Store
}

// NewEnumerator constructs an Enumerator backed by the given store.
func NewEnumerator(store Store) *Enumerator {
	return &Enumerator{store: store}
}

// ManageableCategories lists the guild's categories where the user's
// effective capability includes create or manage. View-only access does not
// make a category manageable. Admins get every category in the guild with no
// capability computation. Results are in collated name order so API
// responses are deterministic.
func (e *Enumerator) ManageableCategories(ctx context.Context, user *User, guildID uint64) ([]CategoryRef, error) {
	if user.IsAdmin {
		cats, err := e.store.CategoriesByGuild(ctx, guildID)
		if err != nil {
			return nil, fmt.Errorf("authz: categories for guild %d: %w", guildID, err)
		}
		return sortByName(cats), nil
	}
	return e.categoriesWhere(ctx, user.DiscordID, guildID, func(c Capability) bool {
		return c.Create || c.Manage
	})
}

// ManageableCategoriesAllGuilds is the cross-guild variant. Role ids are
// Discord snowflakes and globally unique, so one grant scan over all the
// user's roles covers every guild.
func (e *Enumerator) ManageableCategoriesAllGuilds(ctx context.Context, user *User) ([]CategoryRef, error) {
	if user.IsAdmin {
		cats, err := e.store.AllCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("authz: all categories: %w", err)
		}
		return sortByName(cats), nil
	}

	roleIDs, err := e.store.AllRoleIDs(ctx, user.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("authz: roles for user %d: %w", user.DiscordID, err)
	}
	ids, err := e.categoryIDsWhere(ctx, roleIDs, func(c Capability) bool {
		return c.Create || c.Manage
	})
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	all, err := e.store.AllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("authz: all categories: %w", err)
	}
	keep := make(map[int32]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	var cats []CategoryRef
	for _, c := range all {
		if _, ok := keep[c.ID]; ok {
			cats = append(cats, c)
		}
	}
	return sortByName(cats), nil
}

// ViewableCategoryIDs returns the ids of the guild's categories the user may
// view. Used to filter fleet listings.
func (e *Enumerator) ViewableCategoryIDs(ctx context.Context, user *User, guildID uint64) ([]int32, error) {
	return e.idsForGuild(ctx, user, guildID, func(c Capability) bool { return c.View })
}

// CreatableCategoryIDs returns the ids of the guild's categories the user may
// create fleets in. Used for category dropdowns on fleet creation.
func (e *Enumerator) CreatableCategoryIDs(ctx context.Context, user *User, guildID uint64) ([]int32, error) {
	return e.idsForGuild(ctx, user, guildID, func(c Capability) bool { return c.Create })
}

func (e *Enumerator) idsForGuild(ctx context.Context, user *User, guildID uint64, include func(Capability) bool) ([]int32, error) {
	if user.IsAdmin {
		cats, err := e.store.CategoriesByGuild(ctx, guildID)
		if err != nil {
			return nil, fmt.Errorf("authz: categories for guild %d: %w", guildID, err)
		}
		ids := make([]int32, len(cats))
		for i, c := range cats {
			ids[i] = c.ID
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return ids, nil
	}

	cats, err := e.categoriesWhere(ctx, user.DiscordID, guildID, include)
	if err != nil {
		return nil, err
	}
	ids := make([]int32, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// categoriesWhere fetches all grants for the user's roles in one query,
// folds them per category with EffectiveCapability, and keeps the guild's
// categories the predicate accepts. One grants query plus one category
// fetch, never per-category round trips.
func (e *Enumerator) categoriesWhere(ctx context.Context, userID, guildID uint64, include func(Capability) bool) ([]CategoryRef, error) {
	roleIDs, err := e.store.RoleIDs(ctx, userID, guildID)
	if err != nil {
		return nil, fmt.Errorf("authz: role membership for user %d in guild %d: %w", userID, guildID, err)
	}
	ids, err := e.categoryIDsWhere(ctx, roleIDs, include)
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	// Restricting to the guild here also drops grants on categories the
	// roles reference in other guilds.
	cats, err := e.store.CategoriesByIDs(ctx, guildID, ids)
	if err != nil {
		return nil, fmt.Errorf("authz: categories for guild %d: %w", guildID, err)
	}
	return sortByName(cats), nil
}

func (e *Enumerator) categoryIDsWhere(ctx context.Context, roleIDs []uint64, include func(Capability) bool) ([]int32, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	grants, err := e.store.GrantsForRoles(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("authz: grants for roles: %w", err)
	}

	held := roleSet(roleIDs)
	byCategory := make(map[int32][]Grant)
	for _, g := range grants {
		byCategory[g.CategoryID] = append(byCategory[g.CategoryID], g)
	}

	var ids []int32
	for id, categoryGrants := range byCategory {
		if include(EffectiveCapability(categoryGrants, held)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// sortByName orders categories by collated display name, falling back to id
// for identical names. Guild names are arbitrary Unicode so a collator beats
// byte order.
func sortByName(cats []CategoryRef) []CategoryRef {
	c := collate.New(language.Und)
	sort.SliceStable(cats, func(i, j int) bool {
		if cmp := c.CompareString(cats[i].Name, cats[j].Name); cmp != 0 {
			return cmp < 0
		}
		return cats[i].ID < cats[j].ID
	})
	return cats
}
