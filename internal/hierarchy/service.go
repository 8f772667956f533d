package hierarchy

import (
	"context"
	"log/slog"

	"github.com/plotweave/plotweave/internal/taxonomy"
)

// Service runs hierarchy and scope checks against committed snapshots.
type Service struct {
	taxonomy *taxonomy.Service
	logger   *slog.Logger
}

// NewService constructs a hierarchy [Service].
func NewService(taxonomyService *taxonomy.Service, logger *slog.Logger) *Service {
	return &Service{taxonomy: taxonomyService, logger: logger}
}

// Report is the combined outcome of a consistency check.
type Report struct {
	// IsConsistent holds when no finding and no invalid reference exists.
	IsConsistent bool `json:"is_consistent"`

	// InvalidRefs lists the ids that are not active members of the fandom.
	InvalidRefs EntityRefs `json:"invalid_refs"`

	// Findings lists structured relationship errors.
	Findings []Finding `json:"findings"`
}

/*
Check validates entity references and proposed relationship links against a
fandom's committed taxonomy in one pass.

Description: Management tooling calls this to dry-run a taxonomy edit
before committing it. The check is read-only and non-fatal: every problem
is reported as structured data and the caller decides whether to block the
write.

Parameters:
  - ctx: context.Context
  - fandomID: int64
  - refs: EntityRefs (ids a pathway or rule references)
  - relationships: Relationships (proposed link sets)

Returns:
  - *Report: Scope violations plus relationship findings
  - error: apperr.NotFound when the fandom is missing or inactive
*/
func (service *Service) Check(ctx context.Context, fandomID int64, refs EntityRefs, relationships Relationships) (*Report, error) {
	snapshot, err := service.taxonomy.LoadActiveSnapshot(ctx, fandomID)
	if err != nil {
		return nil, err
	}

	invalid := ValidateFandomScope(snapshot, refs)
	findings := ValidateEntityRelationships(snapshot, relationships)

	report := &Report{
		IsConsistent: invalid.IsEmpty() && len(findings) == 0,
		InvalidRefs:  invalid,
		Findings:     findings,
	}

	if !report.IsConsistent {
		service.logger.Info("hierarchy_check_failed",
			slog.Int64("fandom_id", fandomID),
			slog.Int("findings", len(findings)),
		)
	}

	return report, nil
}
