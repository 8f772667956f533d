// Copyright (c) 2026 Plotweave. All rights reserved.

package hierarchy

import (
	"github.com/plotweave/plotweave/internal/taxonomy"
)

// EntityRefs carries id lists to check against a fandom's taxonomy.
type EntityRefs struct {
	TagIDs       []int64 `json:"tag_ids,omitempty"`
	PlotBlockIDs []int64 `json:"plot_block_ids,omitempty"`
	TagClassIDs  []int64 `json:"tag_class_ids,omitempty"`
}

// IsEmpty reports whether no id failed the scope check.
func (refs EntityRefs) IsEmpty() bool {
	return len(refs.TagIDs) == 0 && len(refs.PlotBlockIDs) == 0 && len(refs.TagClassIDs) == 0
}

/*
ValidateFandomScope returns, for each id list, the subset that is not an
active member of the snapshot's fandom. Empty result lists mean every
reference is valid.

Parameters:
  - snapshot: *taxonomy.Snapshot (the fandom's committed taxonomy)
  - refs: EntityRefs (ids referenced by a pathway or rule)

Returns:
  - EntityRefs: The invalid subset of each list, preserving input order
*/
func ValidateFandomScope(snapshot *taxonomy.Snapshot, refs EntityRefs) EntityRefs {
	fandomID := int64(0)
	if snapshot.Fandom != nil {
		fandomID = snapshot.Fandom.ID
	}

	invalid := EntityRefs{}

	tags := snapshot.TagsByID()
	for _, id := range refs.TagIDs {
		tag, ok := tags[id]
		if !ok || !tag.IsActive || tag.FandomID != fandomID {
			invalid.TagIDs = append(invalid.TagIDs, id)
		}
	}

	blocks := snapshot.PlotBlocksByID()
	for _, id := range refs.PlotBlockIDs {
		block, ok := blocks[id]
		if !ok || !block.IsActive || block.FandomID != fandomID {
			invalid.PlotBlockIDs = append(invalid.PlotBlockIDs, id)
		}
	}

	classes := snapshot.TagClassesByID()
	for _, id := range refs.TagClassIDs {
		class, ok := classes[id]
		if !ok || !class.IsActive || class.FandomID != fandomID {
			invalid.TagClassIDs = append(invalid.TagClassIDs, id)
		}
	}

	return invalid
}
