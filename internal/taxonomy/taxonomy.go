/*
Package taxonomy is the read surface over the fandom taxonomy: fandoms,
tags, tag classes, plot blocks, and the story catalogue.

Every entity is scoped to exactly one fandom. The package exposes a
[Repository] that loads a full fandom [Snapshot] in one round trip so the
validation and ranking engines never fetch inside their hot loops, plus an
optional Redis read-through cache decorator.

Taxonomy writes (fandom administration) happen in a separate management
system; this package only consumes committed rows.
*/
package taxonomy

import (
	"strings"
	"time"
)

// # Entities

// Fandom is the scoping root for all taxonomy and rules.
type Fandom struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Tag is an atomic narrative element (e.g. "time-travel", "harry/hermione").
type Tag struct {
	ID       int64  `json:"id"`
	FandomID int64  `json:"fandom_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Category string `json:"category"`

	// Requires lists tag names that must accompany this tag.
	Requires []string `json:"requires,omitempty"`

	// Enhances lists tag names this tag pairs well with.
	Enhances []string `json:"enhances,omitempty"`

	// TagClassID links the tag to its owning class, if any.
	TagClassID *int64 `json:"tag_class_id,omitempty"`

	IsActive bool `json:"is_active"`
}

// # Tag Class Sub-Rules

// MutualExclusion forbids class members from co-occurring with the listed
// tags or with members of the listed classes.
type MutualExclusion struct {
	ConflictingTags    []string `json:"conflicting_tags,omitempty" yaml:"conflicting_tags"`
	ConflictingClasses []string `json:"conflicting_classes,omitempty" yaml:"conflicting_classes"`
}

// RequiredContext demands that class members appear only alongside the
// listed tags, classes, or pathway metadata.
type RequiredContext struct {
	RequiredTags     []string `json:"required_tags,omitempty" yaml:"required_tags"`
	RequiredClasses  []string `json:"required_classes,omitempty" yaml:"required_classes"`
	RequiredMetadata []string `json:"required_metadata,omitempty" yaml:"required_metadata"`
}

// InstanceLimits bounds how many class members a single pathway may carry.
type InstanceLimits struct {
	Min   *int `json:"min,omitempty" yaml:"min"`
	Max   *int `json:"max,omitempty" yaml:"max"`
	Exact *int `json:"exact,omitempty" yaml:"exact"`
}

// CategoryRestrictions constrains the categories class members may mix with.
type CategoryRestrictions struct {
	ApplicableCategories []string `json:"applicable_categories,omitempty" yaml:"applicable_categories"`
	ExcludedCategories   []string `json:"excluded_categories,omitempty" yaml:"excluded_categories"`
	RequiredPlotBlocks   []string `json:"required_plot_blocks,omitempty" yaml:"required_plot_blocks"`
}

// Dependencies links class members to tags they require, enhance, or enable.
type Dependencies struct {
	Requires []string `json:"requires,omitempty" yaml:"requires"`
	Enhances []string `json:"enhances,omitempty" yaml:"enhances"`
	Enables  []string `json:"enables,omitempty" yaml:"enables"`
}

// SubRules is the optional bag of validation sub-rules a tag class carries.
// Each field is independent; absent fields impose no constraint.
type SubRules struct {
	MutualExclusion      *MutualExclusion      `json:"mutual_exclusion,omitempty" yaml:"mutual_exclusion"`
	RequiredContext      *RequiredContext      `json:"required_context,omitempty" yaml:"required_context"`
	InstanceLimits       *InstanceLimits       `json:"instance_limits,omitempty" yaml:"instance_limits"`
	CategoryRestrictions *CategoryRestrictions `json:"category_restrictions,omitempty" yaml:"category_restrictions"`
	Dependencies         *Dependencies         `json:"dependencies,omitempty" yaml:"dependencies"`
}

// TagClass groups tags and carries validation sub-rules over its members.
type TagClass struct {
	ID       int64    `json:"id"`
	FandomID int64    `json:"fandom_id"`
	Name     string   `json:"name"`
	SubRules SubRules `json:"sub_rules"`
	IsActive bool     `json:"is_active"`
}

// PlotBlock is a structural narrative element. Plot blocks form a forest
// via ParentID; the parent/child graph must stay acyclic.
type PlotBlock struct {
	ID       int64  `json:"id"`
	FandomID int64  `json:"fandom_id"`
	Name     string `json:"name"`
	Category string `json:"category"`

	ParentID    *int64  `json:"parent_id,omitempty"`
	ChildrenIDs []int64 `json:"children_ids,omitempty"`

	ConflictsWith      []string `json:"conflicts_with,omitempty"`
	Requires           []string `json:"requires,omitempty"`
	SoftRequires       []string `json:"soft_requires,omitempty"`
	Enhances           []string `json:"enhances,omitempty"`
	EnabledBy          []string `json:"enabled_by,omitempty"`
	ExcludesCategories []string `json:"excludes_categories,omitempty"`

	MaxInstances *int `json:"max_instances,omitempty"`
	IsActive     bool `json:"is_active"`
}

// Story is a published work in the catalogue, carried with its full tag and
// plot-block membership so scoring never issues per-story lookups.
type Story struct {
	ID       int64  `json:"id"`
	FandomID int64  `json:"fandom_id"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`

	TagIDs       []int64 `json:"tag_ids"`
	PlotBlockIDs []int64 `json:"plot_block_ids"`

	WordCount int    `json:"word_count"`
	Status    string `json:"status"`
	Rating    string `json:"rating"`
	Kudos     int    `json:"kudos"`
	Hits      int    `json:"hits"`
	Bookmarks int    `json:"bookmarks"`

	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`
}

// # Snapshot

// Snapshot is one consistent, fandom-scoped read of the full taxonomy.
//
// Engines compute purely from a snapshot for the duration of a call, which
// gives per-call isolation without any cross-call shared state.
type Snapshot struct {
	Fandom     *Fandom      `json:"fandom"`
	Tags       []*Tag       `json:"tags"`
	TagClasses []*TagClass  `json:"tag_classes"`
	PlotBlocks []*PlotBlock `json:"plot_blocks"`
	Stories    []*Story     `json:"stories"`
}

// TagsByID returns an id-keyed index of the snapshot's tags.
func (s *Snapshot) TagsByID() map[int64]*Tag {
	index := make(map[int64]*Tag, len(s.Tags))
	for _, tag := range s.Tags {
		index[tag.ID] = tag
	}
	return index
}

// PlotBlocksByID returns an id-keyed index of the snapshot's plot blocks.
func (s *Snapshot) PlotBlocksByID() map[int64]*PlotBlock {
	index := make(map[int64]*PlotBlock, len(s.PlotBlocks))
	for _, block := range s.PlotBlocks {
		index[block.ID] = block
	}
	return index
}

// TagClassesByID returns an id-keyed index of the snapshot's tag classes.
func (s *Snapshot) TagClassesByID() map[int64]*TagClass {
	index := make(map[int64]*TagClass, len(s.TagClasses))
	for _, class := range s.TagClasses {
		index[class.ID] = class
	}
	return index
}

// TagByName finds a tag by exact name, or nil.
func (s *Snapshot) TagByName(name string) *Tag {
	for _, tag := range s.Tags {
		if tag.Name == name {
			return tag
		}
	}
	return nil
}

// PlotBlockByName finds a plot block by exact name, or nil.
func (s *Snapshot) PlotBlockByName(name string) *PlotBlock {
	for _, block := range s.PlotBlocks {
		if block.Name == name {
			return block
		}
	}
	return nil
}

// ClassMembers returns the names of all tags belonging to the given class.
func (s *Snapshot) ClassMembers(classID int64) []string {
	var members []string
	for _, tag := range s.Tags {
		if tag.TagClassID != nil && *tag.TagClassID == classID {
			members = append(members, tag.Name)
		}
	}
	return members
}

// TagCategories returns the distinct lowercased categories across all tags,
// in first-appearance order.
func (s *Snapshot) TagCategories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, tag := range s.Tags {
		category := strings.ToLower(tag.Category)
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		categories = append(categories, category)
	}
	return categories
}
