// Copyright (c) 2026 Plotweave. All rights reserved.

/*
Package discovery composes the taxonomy accessor, rule engine, and ranking
engine into the single "submit pathway → validated, ranked results"
operation the product exposes, adding novelty analysis and a generated
writing prompt on top.
*/
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/plotweave/plotweave/internal/hierarchy"
	"github.com/plotweave/plotweave/internal/pathway"
	"github.com/plotweave/plotweave/internal/platform/apperr"
	"github.com/plotweave/plotweave/internal/platform/validate"
	"github.com/plotweave/plotweave/internal/ranking"
	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/internal/taxonomy"
)

// minResults is the padding floor: when requested, thin result lists are
// topped up with fandom-popular stories until this many entries exist.
const minResults = 5

// lowRelevanceScore marks a match as low-relevance for novelty analysis.
const lowRelevanceScore = 30

// lowRelevanceLimit gates unusual-combination surfacing.
const lowRelevanceLimit = 3

// rareElementLimit is the match count below which an element counts as rare.
const rareElementLimit = 2

// # Request / Response

// SearchRequest is the discovery contract consumed from callers.
type SearchRequest struct {
	Pathway     []pathway.Item       `json:"pathway"`
	Preferences *ranking.Preferences `json:"preferences,omitempty"`
	Filters     ranking.Filters      `json:"filters,omitempty"`
	Sort        ranking.Sort         `json:"sort,omitempty"`
	Limit       int                  `json:"limit,omitempty"`
	Offset      int                  `json:"offset,omitempty"`

	// PadResults tops up thin result lists with fandom-popular stories.
	PadResults bool `json:"pad_results,omitempty"`
}

// SearchFilters are the name filters derived from the pathway.
type SearchFilters struct {
	Tags       []string `json:"tags"`
	PlotBlocks []string `json:"plot_blocks"`
}

// Combination is a pair of pathway item names flagged as unusual.
type Combination struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// Novelty is the heuristic analysis of how uncommon a pathway is.
type Novelty struct {
	// UnusualCombinations lists pairwise item combinations, surfaced only
	// when the result set contains fewer than 3 low-relevance matches.
	UnusualCombinations []Combination `json:"unusual_combinations"`

	// RareElements are pathway items matched by fewer than 2 returned stories.
	RareElements []string `json:"rare_elements"`

	// MissingElements suggest structural gaps in the pathway.
	MissingElements []string `json:"missing_elements"`
}

// SearchResponse is the full discovery result.
type SearchResponse struct {
	Results        []*ranking.RankedStory `json:"results"`
	Validation     *rules.Result          `json:"validation"`
	Stats          ranking.Stats          `json:"stats"`
	Novelty        Novelty                `json:"novelty"`
	Prompt         string                 `json:"prompt"`
	DerivedFilters SearchFilters          `json:"derived_filters"`
}

// # Service

// Service is the discovery orchestrator. It is built once at the
// composition root and shared by reference; every call is stateless.
type Service struct {
	taxonomy   *taxonomy.Service
	ruleStore  rules.Store
	ruleEngine *rules.Engine
	ranker     *ranking.Engine
	logger     *slog.Logger
}

// NewService constructs the discovery [Service].
func NewService(
	taxonomyService *taxonomy.Service,
	ruleStore rules.Store,
	ruleEngine *rules.Engine,
	ranker *ranking.Engine,
	logger *slog.Logger,
) *Service {
	return &Service{
		taxonomy:   taxonomyService,
		ruleStore:  ruleStore,
		ruleEngine: ruleEngine,
		ranker:     ranker,
		logger:     logger,
	}
}

/*
PerformSearch runs the full discovery pipeline for one pathway.

Description: The call loads one taxonomy snapshot and the fandom's rules,
validates the pathway (shape, scope, and rules), ranks the candidate
stories, optionally pads thin results with fandom-popular stories, and
finishes with novelty analysis and a generated writing prompt.

Parameters:
  - ctx: context.Context
  - fandomID: int64
  - request: SearchRequest

Returns:
  - *SearchResponse: Results, validation, stats, novelty, and prompt
  - error: Precondition failures (missing fandom, malformed pathway) or an
    aggregate read error; never a partially applied result
*/
func (service *Service) PerformSearch(ctx context.Context, fandomID int64, request SearchRequest) (*SearchResponse, error) {
	p := &pathway.Pathway{Items: request.Pathway}

	if err := validatePathwayShape(p); err != nil {
		return nil, err
	}

	snapshot, err := service.taxonomy.LoadActiveSnapshot(ctx, fandomID)
	if err != nil {
		return nil, err
	}

	storedRules, err := service.ruleStore.ListActiveRules(ctx, fandomID)
	if err != nil {
		return nil, err
	}
	ruleSet := append(storedRules, hierarchy.CompileTagClassRules(snapshot)...)

	validation := service.ruleEngine.Evaluate(ruleSet, p)
	mergeShapeWarnings(validation, p)
	mergeScopeErrors(validation, snapshot, p)

	page := service.ranker.Rank(snapshot, ranking.Request{
		Pathway:     p,
		Preferences: request.Preferences,
		Filters:     request.Filters,
		Sort:        request.Sort,
		Limit:       request.Limit,
		Offset:      request.Offset,
	})

	results := page.Results
	if request.PadResults && len(results) < minResults {
		results = padWithPopular(results, snapshot)
	}

	novelty := analyzeNovelty(p, results)

	response := &SearchResponse{
		Results:        results,
		Validation:     validation,
		Stats:          page.Stats,
		Novelty:        novelty,
		Prompt:         renderPrompt(snapshot.Fandom, p, novelty),
		DerivedFilters: deriveFilters(p),
	}

	service.logger.Info("discovery_search_completed",
		slog.Int64("fandom_id", fandomID),
		slog.Int("pathway_items", p.Len()),
		slog.Int("results", len(response.Results)),
		slog.Bool("is_valid", validation.IsValid),
	)

	return response, nil
}

/*
GetCompletionSuggestions proposes tags for categories the pathway does not
cover yet, nudging users toward more diverse pathways.

Parameters:
  - ctx: context.Context
  - fandomID: int64
  - p: *pathway.Pathway
  - limit: int (clamped to at least 1)

Returns:
  - []*taxonomy.Tag: Suggested tags ordered by category then name
  - error: apperr.NotFound when the fandom is missing or inactive
*/
func (service *Service) GetCompletionSuggestions(ctx context.Context, fandomID int64, p *pathway.Pathway, limit int) ([]*taxonomy.Tag, error) {
	snapshot, err := service.taxonomy.LoadActiveSnapshot(ctx, fandomID)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}

	covered := make(map[string]bool)
	for _, category := range p.Categories() {
		covered[category] = true
	}
	selected := make(map[string]bool, len(p.Items))
	for _, item := range p.Items {
		selected[item.Name] = true
	}

	suggestions := make([]*taxonomy.Tag, 0, limit)
	for _, tag := range snapshot.Tags {
		if covered[strings.ToLower(tag.Category)] || selected[tag.Name] {
			continue
		}
		suggestions = append(suggestions, tag)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Category != suggestions[j].Category {
			return suggestions[i].Category < suggestions[j].Category
		}
		return suggestions[i].Name < suggestions[j].Name
	})

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// # Pathway Shape

// validatePathwayShape enforces the fatal shape rules: the pathway must be
// non-empty and item ids must be unique.
func validatePathwayShape(p *pathway.Pathway) error {
	if p.Len() == 0 {
		return apperr.ValidationError("Pathway must contain at least one item")
	}

	validator := &validate.Validator{}
	seen := make(map[string]bool, p.Len())
	for _, item := range p.Items {
		if item.ID != "" && seen[item.ID] {
			validator.Custom("pathway", true, fmt.Sprintf("Duplicate pathway item id %q", item.ID))
		}
		seen[item.ID] = true
		if item.Type != pathway.ItemTag && item.Type != pathway.ItemPlotBlock {
			validator.Custom("pathway", true, fmt.Sprintf("Item %q has unknown type %q", item.Name, item.Type))
		}
	}
	return validator.Err()
}

// mergeShapeWarnings appends the non-fatal shape warnings: position values
// should form a contiguous 0..n-1 sequence.
func mergeShapeWarnings(validation *rules.Result, p *pathway.Pathway) {
	positions := make(map[int]bool, p.Len())
	for _, item := range p.Items {
		positions[item.Position] = true
	}
	contiguous := true
	for i := 0; i < p.Len(); i++ {
		if !positions[i] {
			contiguous = false
			break
		}
	}
	if !contiguous {
		validation.Warnings = append(validation.Warnings, rules.Finding{
			RuleName: "pathway_shape",
			Severity: "warning",
			Message:  "Pathway positions are not a contiguous 0..n-1 sequence",
		})
	}
}

// mergeScopeErrors appends an error for every pathway item that does not
// resolve to an active entity of the fandom. Cross-fandom or unknown
// references always invalidate the pathway.
func mergeScopeErrors(validation *rules.Result, snapshot *taxonomy.Snapshot, p *pathway.Pathway) {
	for _, item := range p.Items {
		resolved := false
		switch item.Type {
		case pathway.ItemTag:
			resolved = snapshot.TagByName(item.Name) != nil
		case pathway.ItemPlotBlock:
			resolved = snapshot.PlotBlockByName(item.Name) != nil
		}
		if !resolved {
			validation.Errors = append(validation.Errors, rules.Finding{
				RuleName: "fandom_scope",
				Severity: "error",
				Message:  fmt.Sprintf("%q does not resolve to an active %s of this fandom", item.Name, item.Type),
			})
		}
	}
	validation.IsValid = len(validation.Errors) == 0 && len(validation.BlockedCombinations) == 0
}

// # Padding

// padWithPopular appends fandom-popular stories (word count, then recency)
// until the floor is reached or candidates run out.
func padWithPopular(results []*ranking.RankedStory, snapshot *taxonomy.Snapshot) []*ranking.RankedStory {
	included := make(map[int64]bool, len(results))
	for _, result := range results {
		included[result.Story.ID] = true
	}

	candidates := make([]*taxonomy.Story, 0, len(snapshot.Stories))
	for _, story := range snapshot.Stories {
		if !included[story.ID] {
			candidates = append(candidates, story)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].WordCount != candidates[j].WordCount {
			return candidates[i].WordCount > candidates[j].WordCount
		}
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})

	rank := 0
	for _, result := range results {
		if result.SearchRank > rank {
			rank = result.SearchRank
		}
	}
	for _, story := range candidates {
		if len(results) >= minResults {
			break
		}
		rank++
		results = append(results, &ranking.RankedStory{
			Story:             story,
			MatchedTags:       []string{},
			MatchedPlotBlocks: []string{},
			SearchRank:        rank,
		})
	}
	return results
}

// # Novelty

func analyzeNovelty(p *pathway.Pathway, results []*ranking.RankedStory) Novelty {
	novelty := Novelty{
		UnusualCombinations: make([]Combination, 0),
		RareElements:        make([]string, 0),
		MissingElements:     make([]string, 0),
	}

	lowRelevance := 0
	for _, result := range results {
		if result.RelevanceScore < lowRelevanceScore {
			lowRelevance++
		}
	}
	if lowRelevance < lowRelevanceLimit {
		names := p.Names()
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				novelty.UnusualCombinations = append(novelty.UnusualCombinations, Combination{
					First:  names[i],
					Second: names[j],
				})
			}
		}
	}

	for _, item := range p.Items {
		matches := 0
		for _, result := range results {
			matched := result.MatchedTags
			if item.Type == pathway.ItemPlotBlock {
				matched = result.MatchedPlotBlocks
			}
			for _, name := range matched {
				if name == item.Name {
					matches++
					break
				}
			}
		}
		if matches < rareElementLimit {
			novelty.RareElements = append(novelty.RareElements, item.Name)
		}
	}

	if !p.HasCategory("character") && !p.HasCategory("relationship") {
		novelty.MissingElements = append(novelty.MissingElements, "Add a character or relationship tag to anchor the story")
	}
	if !p.HasCategory("genre") {
		novelty.MissingElements = append(novelty.MissingElements, "Add a genre tag to set the story's tone")
	}
	if p.CountOfType(pathway.ItemPlotBlock) == 0 {
		novelty.MissingElements = append(novelty.MissingElements, "Add a plot block to give the story structure")
	}

	return novelty
}

// # Prompt Rendering

// renderPrompt concatenates tag names, plot-block names, and novelty
// highlights into a free-text writing prompt.
func renderPrompt(fandom *taxonomy.Fandom, p *pathway.Pathway, novelty Novelty) string {
	var builder strings.Builder

	builder.WriteString("Write a ")
	if fandom != nil {
		builder.WriteString(fandom.Name)
		builder.WriteString(" ")
	}
	builder.WriteString("story")

	if tags := p.NamesOfType(pathway.ItemTag); len(tags) > 0 {
		builder.WriteString(" featuring ")
		builder.WriteString(strings.Join(tags, ", "))
	}
	if blocks := p.NamesOfType(pathway.ItemPlotBlock); len(blocks) > 0 {
		builder.WriteString(" built around ")
		builder.WriteString(strings.Join(blocks, ", "))
	}
	builder.WriteString(".")

	if len(novelty.UnusualCombinations) > 0 {
		combo := novelty.UnusualCombinations[0]
		builder.WriteString(fmt.Sprintf(" The pairing of %q and %q is rarely explored.", combo.First, combo.Second))
	}
	if len(novelty.RareElements) > 0 {
		builder.WriteString(fmt.Sprintf(" Few existing stories cover: %s.", strings.Join(novelty.RareElements, ", ")))
	}
	for _, missing := range novelty.MissingElements {
		builder.WriteString(" ")
		builder.WriteString(missing)
		builder.WriteString(".")
	}

	return builder.String()
}

// deriveFilters extracts the tag and plot-block name filters a downstream
// search index would consume.
func deriveFilters(p *pathway.Pathway) SearchFilters {
	filters := SearchFilters{
		Tags:       p.NamesOfType(pathway.ItemTag),
		PlotBlocks: p.NamesOfType(pathway.ItemPlotBlock),
	}
	if filters.Tags == nil {
		filters.Tags = []string{}
	}
	if filters.PlotBlocks == nil {
		filters.PlotBlocks = []string{}
	}
	return filters
}
