package users

import (
	"context"
	"errors"

	"github.com/fleetboard/fleetboard/internal/shared"
)

// ErrLastAdmin indicates a revoke would leave no admin account.
var ErrLastAdmin = errors.New("users: cannot remove the last admin")

// Service orchestrates user management operations.
type Service struct {
	repo *Repository
}

// NewService constructs a Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	return s.repo.List(ctx, page, perPage)
}

// Admins returns all users holding the admin flag.
func (s *Service) Admins(ctx context.Context) ([]User, error) {
	return s.repo.ListAdmins(ctx)
}

// SetAdmin grants or revokes the admin flag. Revoking fails when it would
// leave the system without any admin.
func (s *Service) SetAdmin(ctx context.Context, discordID uint64, isAdmin bool) error {
	if !isAdmin {
		admins, err := s.repo.ListAdmins(ctx)
		if err != nil {
			return err
		}
		if len(admins) == 1 && admins[0].DiscordID == discordID {
			return ErrLastAdmin
		}
	}
	return s.repo.SetAdmin(ctx, discordID, isAdmin)
}
