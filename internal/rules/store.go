package rules

import "context"

// Store is the rule read contract.
type Store interface {
	// ListActiveRules returns the fandom's active rules sorted by priority
	// descending, each fully hydrated with its ordered conditions and
	// actions. A rule and its condition/action lists are loaded as one
	// consistent unit; a partially committed rule edit is never observed.
	ListActiveRules(ctx context.Context, fandomID int64) ([]*Rule, error)
}
