package users

import "time"

// User represents an account identified by its Discord id. Accounts are
// created on first login and never deleted here; the admin flag is the only
// attribute this application mutates.
type User struct {
	DiscordID       uint64
	Name            string
	IsAdmin         bool
	LastGuildSyncAt time.Time
	LastRoleSyncAt  time.Time
}

// UpsertParams creates or refreshes a user row during login or sync.
// A nil IsAdmin preserves the stored admin flag.
type UpsertParams struct {
	DiscordID uint64
	Name      string
	IsAdmin   *bool
}
