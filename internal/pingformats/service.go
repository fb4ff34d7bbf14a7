package pingformats

import (
	"context"

	"github.com/fleetboard/fleetboard/internal/shared"
)

// Service sits between the HTTP layer and the repository.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, guildID uint64, req FormatReq) (*PingFormat, error) {
	return s.repo.Create(ctx, paramsFromReq(guildID, req))
}

func (s *Service) Update(ctx context.Context, guildID uint64, id int32, req FormatReq) (*PingFormat, error) {
	return s.repo.Update(ctx, id, paramsFromReq(guildID, req))
}

func (s *Service) Delete(ctx context.Context, guildID uint64, id int32) error {
	return s.repo.Delete(ctx, guildID, id)
}

func (s *Service) Get(ctx context.Context, guildID uint64, id int32) (*PingFormat, error) {
	return s.repo.GetByID(ctx, guildID, id)
}

func (s *Service) ListByGuild(ctx context.Context, guildID uint64, page, perPage int) ([]PingFormat, shared.Pagination, error) {
	return s.repo.ListByGuild(ctx, guildID, page, perPage)
}

func paramsFromReq(guildID uint64, req FormatReq) FormatParams {
	params := FormatParams{GuildID: guildID, Name: req.Name}
	for _, f := range req.Fields {
		values := f.DefaultValues
		if values == nil {
			values = []string{}
		}
		params.Fields = append(params.Fields, FieldParams{
			Name:          f.Name,
			Priority:      f.Priority,
			Type:          FieldType(f.Type),
			DefaultValues: values,
		})
	}
	return params
}
