package categories

// AccessRoleReq carries one role grant in a create or update request. Role
// ids travel as strings because Discord snowflakes exceed safe JSON numbers.
type AccessRoleReq struct {
	RoleID    string `json:"role_id" validate:"required,number"`
	CanView   bool   `json:"can_view"`
	CanCreate bool   `json:"can_create"`
	CanManage bool   `json:"can_manage"`
}

// CategoryReq is the body for both POST and PUT. The access role list is
// replaced wholesale on update.
type CategoryReq struct {
	Name             string          `json:"name" validate:"required,max=100"`
	PingFormatID     int32           `json:"ping_format_id" validate:"required,gt=0"`
	PingCooldownSecs *int64          `json:"ping_cooldown_seconds,omitempty" validate:"omitempty,gte=0"`
	PingReminderSecs *int64          `json:"ping_reminder_seconds,omitempty" validate:"omitempty,gte=0"`
	MaxPrePingSecs   *int64          `json:"max_pre_ping_seconds,omitempty" validate:"omitempty,gte=0"`
	AccessRoles      []AccessRoleReq `json:"access_roles" validate:"dive"`
}

// AccessRoleDTO is the API representation of one grant, enriched with the
// role's display properties from the last Discord sync.
type AccessRoleDTO struct {
	RoleID    string `json:"role_id"`
	RoleName  string `json:"role_name"`
	RoleColor string `json:"role_color"`
	Position  int16  `json:"position"`
	CanView   bool   `json:"can_view"`
	CanCreate bool   `json:"can_create"`
	CanManage bool   `json:"can_manage"`
}

// CategoryDTO is the API representation of a fleet category.
type CategoryDTO struct {
	ID               int32           `json:"id"`
	GuildID          string          `json:"guild_id"`
	Name             string          `json:"name"`
	PingFormatID     int32           `json:"ping_format_id"`
	PingCooldownSecs *int64          `json:"ping_cooldown_seconds,omitempty"`
	PingReminderSecs *int64          `json:"ping_reminder_seconds,omitempty"`
	MaxPrePingSecs   *int64          `json:"max_pre_ping_seconds,omitempty"`
	AccessRoles      []AccessRoleDTO `json:"access_roles"`
}
