package categories

import "time"

// AccessRole is a grant row attached to a category: the capability bits one
// Discord role holds, enriched with the role's display properties when the
// role is still known to the sync feed.
type AccessRole struct {
	RoleID    uint64
	RoleName  string
	RoleColor string
	Position  int16
	CanView   bool
	CanCreate bool
	CanManage bool
}

// Category is a guild-scoped grouping of fleets and the unit of access
// control. The scheduling parameters are irrelevant to authorization.
type Category struct {
	ID           int32
	GuildID      uint64
	PingFormatID int32
	Name         string
	PingCooldown *time.Duration
	PingReminder *time.Duration
	MaxPrePing   *time.Duration
	AccessRoles  []AccessRole
}

// GrantParams carries the capability bits for one role when creating or
// updating a category. At most one grant per (category, role) pair is kept;
// a repeated role overwrites.
type GrantParams struct {
	RoleID    uint64
	CanView   bool
	CanCreate bool
	CanManage bool
}

// CategoryParams carries everything needed to create or replace a category.
type CategoryParams struct {
	GuildID      uint64
	PingFormatID int32
	Name         string
	PingCooldown *time.Duration
	PingReminder *time.Duration
	MaxPrePing   *time.Duration
	AccessRoles  []GrantParams
}
