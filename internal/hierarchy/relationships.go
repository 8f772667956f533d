// Copyright (c) 2026 Plotweave. All rights reserved.

package hierarchy

import (
	"fmt"

	"github.com/plotweave/plotweave/internal/taxonomy"
)

// # Findings

// FindingKind classifies a relationship validation failure.
type FindingKind string

const (
	FindingInvalidTagClass    FindingKind = "invalid_tag_class"
	FindingInvalidParent      FindingKind = "invalid_parent"
	FindingCircularDependency FindingKind = "circular_dependency"
	FindingCrossFandom        FindingKind = "cross_fandom_reference"
)

// Finding is one structured, non-fatal relationship error. The caller (a
// management write path elsewhere in the system) decides whether a finding
// blocks the write.
type Finding struct {
	Kind      FindingKind `json:"kind"`
	EntityIDs []int64     `json:"entity_ids"`
	Message   string      `json:"message"`
}

// # Relationship Inputs

// TagClassLink is a proposed tag → tag-class assignment.
type TagClassLink struct {
	TagID         int64 `json:"tag_id"`
	TagFandomID   int64 `json:"tag_fandom_id"`
	TagClassID    int64 `json:"tag_class_id"`
	ClassFandomID int64 `json:"class_fandom_id"`
}

// ParentLink is a proposed plot-block child → parent assignment.
type ParentLink struct {
	ChildID        int64 `json:"child_id"`
	ChildFandomID  int64 `json:"child_fandom_id"`
	ParentID       int64 `json:"parent_id"`
	ParentFandomID int64 `json:"parent_fandom_id"`
}

// TagDependency is a proposed tag → required/enhanced tag list.
type TagDependency struct {
	TagID        int64   `json:"tag_id"`
	TagFandomID  int64   `json:"tag_fandom_id"`
	DependsOnIDs []int64 `json:"depends_on_ids"`
}

// Relationships bundles the link sets a taxonomy edit wants to commit.
type Relationships struct {
	TagClassLinks   []TagClassLink  `json:"tag_class_links,omitempty"`
	ParentLinks     []ParentLink    `json:"parent_links,omitempty"`
	TagDependencies []TagDependency `json:"tag_dependencies,omitempty"`
}

/*
ValidateEntityRelationships cross-checks that tag→tag-class pairs,
plot-block parent→child pairs, and tag dependency lists all stay within one
fandom and reference resolvable entities, including cycle detection over
the proposed parent links combined with the existing forest.

Parameters:
  - snapshot: *taxonomy.Snapshot
  - relationships: Relationships (the proposed link sets)

Returns:
  - []Finding: Structured errors; empty means the edit is consistent
*/
func ValidateEntityRelationships(snapshot *taxonomy.Snapshot, relationships Relationships) []Finding {
	fandomID := int64(0)
	if snapshot.Fandom != nil {
		fandomID = snapshot.Fandom.ID
	}

	findings := make([]Finding, 0)
	tags := snapshot.TagsByID()
	blocks := snapshot.PlotBlocksByID()
	classes := snapshot.TagClassesByID()

	for _, link := range relationships.TagClassLinks {
		if link.TagFandomID != fandomID || link.ClassFandomID != fandomID {
			findings = append(findings, Finding{
				Kind:      FindingCrossFandom,
				EntityIDs: []int64{link.TagID, link.TagClassID},
				Message:   fmt.Sprintf("tag %d and tag class %d must both belong to fandom %d", link.TagID, link.TagClassID, fandomID),
			})
			continue
		}
		if class, ok := classes[link.TagClassID]; !ok || !class.IsActive {
			findings = append(findings, Finding{
				Kind:      FindingInvalidTagClass,
				EntityIDs: []int64{link.TagID, link.TagClassID},
				Message:   fmt.Sprintf("tag class %d does not resolve to an active class", link.TagClassID),
			})
		}
	}

	for _, link := range relationships.ParentLinks {
		if link.ChildFandomID != fandomID || link.ParentFandomID != fandomID {
			findings = append(findings, Finding{
				Kind:      FindingCrossFandom,
				EntityIDs: []int64{link.ChildID, link.ParentID},
				Message:   fmt.Sprintf("plot blocks %d and %d must both belong to fandom %d", link.ChildID, link.ParentID, fandomID),
			})
			continue
		}
		if parent, ok := blocks[link.ParentID]; !ok || !parent.IsActive {
			findings = append(findings, Finding{
				Kind:      FindingInvalidParent,
				EntityIDs: []int64{link.ChildID, link.ParentID},
				Message:   fmt.Sprintf("parent plot block %d does not resolve to an active block", link.ParentID),
			})
		}
	}

	// Cycle detection runs over the existing forest plus the proposed
	// links, so an edit that would close a loop is caught before commit.
	edges := make([]Edge, 0, len(snapshot.PlotBlocks)+len(relationships.ParentLinks))
	for _, block := range snapshot.PlotBlocks {
		if block.ParentID != nil {
			edges = append(edges, Edge{ChildID: block.ID, ParentID: *block.ParentID})
		}
	}
	for _, link := range relationships.ParentLinks {
		edges = append(edges, Edge{ChildID: link.ChildID, ParentID: link.ParentID})
	}
	for _, cycle := range DetectCircularDependencies(edges) {
		findings = append(findings, Finding{
			Kind:      FindingCircularDependency,
			EntityIDs: cycle,
			Message:   fmt.Sprintf("plot block hierarchy contains a cycle through %d blocks", len(cycle)-1),
		})
	}

	for _, dependency := range relationships.TagDependencies {
		if dependency.TagFandomID != fandomID {
			findings = append(findings, Finding{
				Kind:      FindingCrossFandom,
				EntityIDs: []int64{dependency.TagID},
				Message:   fmt.Sprintf("tag %d must belong to fandom %d", dependency.TagID, fandomID),
			})
			continue
		}
		for _, dependsOn := range dependency.DependsOnIDs {
			if tag, ok := tags[dependsOn]; !ok || !tag.IsActive || tag.FandomID != fandomID {
				findings = append(findings, Finding{
					Kind:      FindingCrossFandom,
					EntityIDs: []int64{dependency.TagID, dependsOn},
					Message:   fmt.Sprintf("tag %d depends on %d, which is not an active tag of fandom %d", dependency.TagID, dependsOn, fandomID),
				})
			}
		}
	}

	return findings
}
