package taxonomy

import (
	"context"
	"log/slog"

	"github.com/plotweave/plotweave/internal/platform/apperr"
)

// Service exposes fandom and taxonomy reads to the transport layer and to
// the discovery/hierarchy engines.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a taxonomy [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListFandoms returns all active fandoms.
func (service *Service) ListFandoms(ctx context.Context) ([]*Fandom, error) {
	return service.repo.ListFandoms(ctx, true)
}

// GetFandomBySlug resolves a fandom by slug, rejecting inactive fandoms.
func (service *Service) GetFandomBySlug(ctx context.Context, slug string) (*Fandom, error) {
	fandom, err := service.repo.GetFandomBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !fandom.IsActive {
		return nil, apperr.NotFound("Fandom")
	}
	return fandom, nil
}

/*
LoadActiveSnapshot loads the active-only taxonomy snapshot for a fandom.

Description: This is the single entry point every engine call goes through.
A missing or inactive fandom is a precondition failure: the call aborts
before any rule evaluation or scoring happens.

Parameters:
  - ctx: context.Context
  - fandomID: int64

Returns:
  - *Snapshot: One consistent fandom-scoped read
  - error: apperr.NotFound if the fandom is missing or inactive
*/
func (service *Service) LoadActiveSnapshot(ctx context.Context, fandomID int64) (*Snapshot, error) {
	snapshot, err := service.repo.Snapshot(ctx, fandomID, true)
	if err != nil {
		return nil, err
	}
	if snapshot.Fandom == nil || !snapshot.Fandom.IsActive {
		return nil, apperr.NotFound("Fandom")
	}
	return snapshot, nil
}
