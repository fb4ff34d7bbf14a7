// Package discord holds the read models mirrored from Discord: guilds,
// roles, channels and the membership relations between users and them.
// The rows are owned by the external sync feed; this application reads them
// and performs only the wholesale replace writes the feed contract defines.
package discord

import "time"

// Guild is a Discord server known to the timerboard.
type Guild struct {
	ID         uint64
	Name       string
	NeedsSync  bool
	LastSyncAt time.Time
}

// Role is a Discord role inside a guild. Name, color and position exist for
// display only; a role carries no authorization meaning until a category
// grants it capabilities.
type Role struct {
	ID       uint64
	GuildID  uint64
	Name     string
	Color    string
	Position int16
}

// Channel is a Discord text channel inside a guild.
type Channel struct {
	ID       uint64
	GuildID  uint64
	Name     string
	Position int16
}
