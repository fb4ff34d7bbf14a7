// Package fleets implements the timerboard itself: upcoming fleet entries
// scoped to a category, visible according to the caller's category grants.
package fleets

import "time"

// Fleet is one scheduled operation. CategoryName, CommanderName and the
// reminder window come from joins and are read-only.
type Fleet struct {
	ID              int32
	CategoryID      int32
	CategoryName    string
	GuildID         uint64
	Name            string
	CommanderID     uint64
	CommanderName   string
	FleetTime       time.Time
	Description     *string
	FieldValues     map[string]string
	Hidden          bool
	DisableReminder bool
	CreatedAt       time.Time

	// PingReminder mirrors the category's reminder window at read time so
	// visibility can be decided without a second query.
	PingReminder *time.Duration
}

// VisibleAt reports whether a hidden fleet has become visible to users who
// only hold view access. Hidden fleets surface once the category's reminder
// window opens, or once the fleet starts when no reminder is configured.
// Non-hidden fleets are always visible.
func (f *Fleet) VisibleAt(now time.Time) bool {
	if !f.Hidden {
		return true
	}
	if f.PingReminder != nil {
		return !now.Before(f.FleetTime.Add(-*f.PingReminder))
	}
	return !now.Before(f.FleetTime)
}

// FleetParams carries everything needed to create or update a fleet.
type FleetParams struct {
	CategoryID      int32
	GuildID         uint64
	Name            string
	CommanderID     uint64
	FleetTime       time.Time
	Description     *string
	FieldValues     map[string]string
	Hidden          bool
	DisableReminder bool
}

// ListFilter narrows a guild listing to what the caller may see. A nil
// ViewableCategoryIDs means no category filter, which is the admin path.
type ListFilter struct {
	GuildID             uint64
	ViewableCategoryIDs []int32
	ManagedCategoryIDs  []int32
	Admin               bool
	Page                int
	PerPage             int
}
