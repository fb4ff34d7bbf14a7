package fleets

import (
	"strconv"
	"time"
)

// FleetReq is the body for both POST and PUT. Commander ids travel as
// strings because Discord snowflakes exceed safe JSON numbers; fleet times
// are RFC 3339 and interpreted in UTC.
type FleetReq struct {
	CategoryID      int32             `json:"category_id" validate:"required,gt=0"`
	Name            string            `json:"name" validate:"required,max=100"`
	CommanderID     string            `json:"commander_id" validate:"required,number"`
	FleetTime       time.Time         `json:"fleet_time" validate:"required"`
	Description     *string           `json:"description,omitempty"`
	FieldValues     map[string]string `json:"field_values"`
	Hidden          bool              `json:"hidden"`
	DisableReminder bool              `json:"disable_reminder"`
}

// FleetDTO is the API representation of a fleet.
type FleetDTO struct {
	ID              int32             `json:"id"`
	CategoryID      int32             `json:"category_id"`
	CategoryName    string            `json:"category_name"`
	GuildID         string            `json:"guild_id"`
	Name            string            `json:"name"`
	CommanderID     string            `json:"commander_id"`
	CommanderName   string            `json:"commander_name"`
	FleetTime       time.Time         `json:"fleet_time"`
	Description     *string           `json:"description,omitempty"`
	FieldValues     map[string]string `json:"field_values"`
	Hidden          bool              `json:"hidden"`
	DisableReminder bool              `json:"disable_reminder"`
	CreatedAt       time.Time         `json:"created_at"`
}

// FleetListResponse is one page of the timerboard.
type FleetListResponse struct {
	Fleets     []FleetDTO `json:"fleets"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalPages int        `json:"total_pages"`
}

func toDTO(f Fleet) FleetDTO {
	fields := f.FieldValues
	if fields == nil {
		fields = map[string]string{}
	}
	return FleetDTO{
		ID:              f.ID,
		CategoryID:      f.CategoryID,
		CategoryName:    f.CategoryName,
		GuildID:         strconv.FormatUint(f.GuildID, 10),
		Name:            f.Name,
		CommanderID:     strconv.FormatUint(f.CommanderID, 10),
		CommanderName:   f.CommanderName,
		FleetTime:       f.FleetTime.UTC(),
		Description:     f.Description,
		FieldValues:     fields,
		Hidden:          f.Hidden,
		DisableReminder: f.DisableReminder,
		CreatedAt:       f.CreatedAt.UTC(),
	}
}
