package fleets

import (
	"context"
	"strconv"
	"time"

	"github.com/fleetboard/fleetboard/internal/shared"
)

// Service sits between the HTTP layer and the repository.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, guildID uint64, req FleetReq) (*Fleet, error) {
	params, err := paramsFromReq(guildID, req)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, params)
}

func (s *Service) Update(ctx context.Context, guildID uint64, id int32, req FleetReq) (*Fleet, error) {
	params, err := paramsFromReq(guildID, req)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, params)
}

func (s *Service) Delete(ctx context.Context, guildID uint64, id int32) error {
	return s.repo.Delete(ctx, guildID, id)
}

func (s *Service) Get(ctx context.Context, id int32) (*Fleet, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByGuild(ctx context.Context, filter ListFilter) ([]Fleet, shared.Pagination, error) {
	return s.repo.ListByGuild(ctx, filter)
}

// DeleteOlderThan is called by the retention job.
func (s *Service) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

func paramsFromReq(guildID uint64, req FleetReq) (FleetParams, error) {
	commanderID, err := strconv.ParseUint(req.CommanderID, 10, 64)
	if err != nil {
		return FleetParams{}, &InvalidCommanderIDError{Raw: req.CommanderID}
	}
	return FleetParams{
		CategoryID:      req.CategoryID,
		GuildID:         guildID,
		Name:            req.Name,
		CommanderID:     commanderID,
		FleetTime:       req.FleetTime.UTC(),
		Description:     req.Description,
		FieldValues:     req.FieldValues,
		Hidden:          req.Hidden,
		DisableReminder: req.DisableReminder,
	}, nil
}

// InvalidCommanderIDError reports a commander id that is not a Discord
// snowflake.
type InvalidCommanderIDError struct {
	Raw string
}

func (e *InvalidCommanderIDError) Error() string {
	return "fleets: invalid commander id " + strconv.Quote(e.Raw)
}
