// Package authz implements permission resolution for guild-scoped fleet
// categories. A user's effective capability on a category is the boolean OR
// of the grants attached to every Discord role the user holds; a global
// admin flag overrides all per-category checks.
package authz

import "fmt"

// User is the resolved identity returned by a successful permission check.
type User struct {
	DiscordID uint64
	Name      string
	IsAdmin   bool
}

// Capability is the derived permission triple for a (user, category) pair.
type Capability struct {
	View   bool
	Create bool
	Manage bool
}

// Grant carries the capability bits one role holds on one category.
type Grant struct {
	CategoryID int32
	RoleID     uint64
	Capability
}

// CategoryRef identifies a fleet category for authorization purposes.
type CategoryRef struct {
	ID      int32
	GuildID uint64
	Name    string
}

type permissionKind int

const (
	permAdmin permissionKind = iota
	permCategoryView
	permCategoryCreate
	permCategoryManage
)

// Permission is one required permission evaluated by the Guard. The variant
// set is closed: construct values through Admin, CategoryView, CategoryCreate
// or CategoryManage.
type Permission struct {
	kind       permissionKind
	GuildID    uint64
	CategoryID int32
}

// Admin requires the global admin flag.
func Admin() Permission {
	return Permission{kind: permAdmin}
}

// CategoryView requires view access to the category.
func CategoryView(guildID uint64, categoryID int32) Permission {
	return Permission{kind: permCategoryView, GuildID: guildID, CategoryID: categoryID}
}

// CategoryCreate requires create access to the category.
func CategoryCreate(guildID uint64, categoryID int32) Permission {
	return Permission{kind: permCategoryCreate, GuildID: guildID, CategoryID: categoryID}
}

// CategoryManage requires manage access to the category.
func CategoryManage(guildID uint64, categoryID int32) Permission {
	return Permission{kind: permCategoryManage, GuildID: guildID, CategoryID: categoryID}
}

func (p Permission) String() string {
	switch p.kind {
	case permAdmin:
		return "admin"
	case permCategoryView:
		return fmt.Sprintf("category:view(%d/%d)", p.GuildID, p.CategoryID)
	case permCategoryCreate:
		return fmt.Sprintf("category:create(%d/%d)", p.GuildID, p.CategoryID)
	case permCategoryManage:
		return fmt.Sprintf("category:manage(%d/%d)", p.GuildID, p.CategoryID)
	}
	return "unknown"
}

// verb names the capability bit a category permission checks.
func (p Permission) verb() string {
	switch p.kind {
	case permCategoryView:
		return "view"
	case permCategoryCreate:
		return "create"
	case permCategoryManage:
		return "manage"
	}
	return ""
}

// satisfiedBy reports whether the capability triple covers this permission.
// Only meaningful for category permissions.
func (p Permission) satisfiedBy(c Capability) bool {
	switch p.kind {
	case permCategoryView:
		return c.View
	case permCategoryCreate:
		return c.Create
	case permCategoryManage:
		return c.Manage
	}
	return false
}
