package categories

import (
	"context"
	"strconv"
)

// Service sits between the HTTP layer and the repository. Request shaping
// and snowflake parsing happen here so the repository only sees typed ids.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, guildID uint64, req CategoryReq) (*Category, error) {
	params, err := paramsFromReq(guildID, req)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, params)
}

func (s *Service) Update(ctx context.Context, guildID uint64, id int32, req CategoryReq) (*Category, error) {
	params, err := paramsFromReq(guildID, req)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, params)
}

func (s *Service) Delete(ctx context.Context, guildID uint64, id int32) error {
	return s.repo.Delete(ctx, guildID, id)
}

func (s *Service) Get(ctx context.Context, id int32) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByGuild(ctx context.Context, guildID uint64) ([]Category, error) {
	return s.repo.ListByGuild(ctx, guildID)
}

func paramsFromReq(guildID uint64, req CategoryReq) (CategoryParams, error) {
	params := CategoryParams{
		GuildID:      guildID,
		PingFormatID: req.PingFormatID,
		Name:         req.Name,
		PingCooldown: secondsDuration(req.PingCooldownSecs),
		PingReminder: secondsDuration(req.PingReminderSecs),
		MaxPrePing:   secondsDuration(req.MaxPrePingSecs),
	}
	for _, ar := range req.AccessRoles {
		roleID, err := strconv.ParseUint(ar.RoleID, 10, 64)
		if err != nil {
			return CategoryParams{}, &InvalidRoleIDError{Raw: ar.RoleID}
		}
		params.AccessRoles = append(params.AccessRoles, GrantParams{
			RoleID:    roleID,
			CanView:   ar.CanView,
			CanCreate: ar.CanCreate,
			CanManage: ar.CanManage,
		})
	}
	return params, nil
}

// InvalidRoleIDError reports a role id in a request body that is not a
// Discord snowflake.
type InvalidRoleIDError struct {
	Raw string
}

func (e *InvalidRoleIDError) Error() string {
	return "categories: invalid role id " + strconv.Quote(e.Raw)
}
