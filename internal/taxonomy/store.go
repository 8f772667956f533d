package taxonomy

import "context"

// Repository is the read contract the engines consume.
//
// Implementations must return fully hydrated entities: stories carry their
// complete tag/plot-block membership and plot blocks carry their children
// ids, so callers never follow up with per-entity lookups.
type Repository interface {
	// Snapshot loads one consistent read of the fandom's full taxonomy.
	// When activeOnly is true, inactive entities are excluded (the fandom
	// row itself is always returned regardless of its active flag so the
	// caller can report the precondition failure).
	Snapshot(ctx context.Context, fandomID int64, activeOnly bool) (*Snapshot, error)

	// ListFandoms returns all fandoms, optionally restricted to active ones.
	ListFandoms(ctx context.Context, activeOnly bool) ([]*Fandom, error)

	// GetFandomBySlug resolves a fandom by its URL slug.
	GetFandomBySlug(ctx context.Context, slug string) (*Fandom, error)
}
