// Copyright (c) 2026 Plotweave. All rights reserved.

package ranking

import (
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/plotweave/plotweave/internal/pathway"
	"github.com/plotweave/plotweave/internal/taxonomy"
)

// Engine scores, filters, sorts, and paginates candidate story sets.
//
// All taxonomy lookups come from the snapshot handed to [Engine.Rank]; the
// engine never fetches inside the scoring loop, which keeps a 10k-story
// fandom comfortably inside a sub-second budget (O(n) scoring plus an
// O(n log n) sort).
type Engine struct {
	logger *slog.Logger
}

// NewEngine constructs a ranking [Engine].
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

/*
Rank scores every active story in the snapshot against the request's
pathway, then filters, sorts, ranks, and paginates the results.

Description: Missing optional story fields never fail a call; absent
counts score zero and absent preferences score the neutral midpoint.
Identical inputs always produce an identical page regardless of internal
chunking.

Parameters:
  - snapshot: *taxonomy.Snapshot (bulk-loaded candidate set + taxonomy)
  - request: Request

Returns:
  - *Page: The paginated results with pre-pagination statistics
*/
func (engine *Engine) Rank(snapshot *taxonomy.Snapshot, request Request) *Page {
	scoredAt := request.ScoredAt
	if scoredAt.IsZero() {
		scoredAt = time.Now()
	}

	scorer := newScorer(snapshot, request.Pathway, request.Preferences, scoredAt)

	scored := make([]*RankedStory, 0, len(snapshot.Stories))
	for start := 0; start < len(snapshot.Stories); start += scoringChunkSize {
		end := min(start+scoringChunkSize, len(snapshot.Stories))
		for _, story := range snapshot.Stories[start:end] {
			scored = append(scored, scorer.score(story))
		}
	}

	filtered, applied := applyFilters(scored, request.Filters)
	sortResults(filtered, request.Sort)
	for i, result := range filtered {
		result.SearchRank = i + 1
	}

	stats := Stats{
		TotalCandidates: len(scored),
		TotalFiltered:   len(filtered),
		Distribution:    distribution(filtered),
		AppliedFilters:  applied,
	}

	return &Page{
		Results: paginate(filtered, request.Limit, request.Offset),
		Stats:   stats,
		Total:   len(filtered),
	}
}

// # Scoring

// scorer holds the per-call indexes built once before the scoring loop.
type scorer struct {
	pathway     *pathway.Pathway
	preferences *Preferences
	scoredAt    time.Time

	tagNames        map[int64]string
	tagCategories   map[int64]string
	blockNames      map[int64]string
	blockCategories map[int64]string

	pathwayKeywords []string
}

func newScorer(snapshot *taxonomy.Snapshot, p *pathway.Pathway, preferences *Preferences, scoredAt time.Time) *scorer {
	s := &scorer{
		pathway:         p,
		preferences:     preferences,
		scoredAt:        scoredAt,
		tagNames:        make(map[int64]string, len(snapshot.Tags)),
		tagCategories:   make(map[int64]string, len(snapshot.Tags)),
		blockNames:      make(map[int64]string, len(snapshot.PlotBlocks)),
		blockCategories: make(map[int64]string, len(snapshot.PlotBlocks)),
	}
	for _, tag := range snapshot.Tags {
		s.tagNames[tag.ID] = tag.Name
		s.tagCategories[tag.ID] = strings.ToLower(tag.Category)
	}
	for _, block := range snapshot.PlotBlocks {
		s.blockNames[block.ID] = block.Name
		s.blockCategories[block.ID] = strings.ToLower(block.Category)
	}

	seen := make(map[string]bool)
	for _, item := range p.Items {
		for _, keyword := range Keywords(item.Name) {
			if !seen[keyword] {
				seen[keyword] = true
				s.pathwayKeywords = append(s.pathwayKeywords, keyword)
			}
		}
	}
	return s
}

func (s *scorer) score(story *taxonomy.Story) *RankedStory {
	tagNameSet := make(map[string]bool, len(story.TagIDs))
	for _, id := range story.TagIDs {
		if name, ok := s.tagNames[id]; ok {
			tagNameSet[name] = true
		}
	}
	blockNameSet := make(map[string]bool, len(story.PlotBlockIDs))
	for _, id := range story.PlotBlockIDs {
		if name, ok := s.blockNames[id]; ok {
			blockNameSet[name] = true
		}
	}

	factors := Factors{
		ExactMatches:       s.exactMatches(tagNameSet, blockNameSet),
		CategoryMatches:    s.categoryMatches(story),
		SemanticSimilarity: s.semanticSimilarity(story),
		Popularity:         popularity(story),
		Recency:            recency(story.UpdatedAt, s.scoredAt),
		UserAlignment:      s.userAlignment(story, tagNameSet),
	}

	score := WeightExactMatches*factors.ExactMatches +
		WeightCategoryMatches*factors.CategoryMatches +
		WeightSemanticSimilarity*factors.SemanticSimilarity +
		WeightPopularity*factors.Popularity +
		WeightRecency*factors.Recency +
		WeightUserAlignment*factors.UserAlignment

	matchedTags := make([]string, 0)
	matchedBlocks := make([]string, 0)
	for _, item := range s.pathway.Items {
		switch item.Type {
		case pathway.ItemTag:
			if tagNameSet[item.Name] {
				matchedTags = append(matchedTags, item.Name)
			}
		case pathway.ItemPlotBlock:
			if blockNameSet[item.Name] {
				matchedBlocks = append(matchedBlocks, item.Name)
			}
		}
	}

	return &RankedStory{
		Story:             story,
		RelevanceScore:    score,
		Factors:           factors,
		MatchedTags:       matchedTags,
		MatchedPlotBlocks: matchedBlocks,
	}
}

// exactMatches is the share of pathway items present in the story's tag and
// plot-block name sets, scaled to 0..100.
func (s *scorer) exactMatches(tagNameSet, blockNameSet map[string]bool) float64 {
	if s.pathway.Len() == 0 {
		return 0
	}
	matched := 0
	for _, item := range s.pathway.Items {
		switch item.Type {
		case pathway.ItemTag:
			if tagNameSet[item.Name] {
				matched++
			}
		case pathway.ItemPlotBlock:
			if blockNameSet[item.Name] {
				matched++
			}
		}
	}
	return float64(matched) / float64(s.pathway.Len()) * 100
}

// categoryMatches is the share of (pathway item, story item) pairs sharing
// a category, across tags and plot blocks combined, scaled to 0..100.
func (s *scorer) categoryMatches(story *taxonomy.Story) float64 {
	storyCategories := make([]string, 0, len(story.TagIDs)+len(story.PlotBlockIDs))
	for _, id := range story.TagIDs {
		if category, ok := s.tagCategories[id]; ok {
			storyCategories = append(storyCategories, category)
		}
	}
	for _, id := range story.PlotBlockIDs {
		if category, ok := s.blockCategories[id]; ok {
			storyCategories = append(storyCategories, category)
		}
	}

	comparisons := s.pathway.Len() * len(storyCategories)
	if comparisons == 0 {
		return 0
	}

	matched := 0
	for _, item := range s.pathway.Items {
		itemCategory := strings.ToLower(item.Category)
		for _, storyCategory := range storyCategories {
			if itemCategory != "" && itemCategory == storyCategory {
				matched++
			}
		}
	}
	return float64(matched) / float64(comparisons) * 100
}

// semanticSimilarity is the share of pathway keywords that substring-overlap
// a story title/summary keyword, scaled to 0..100.
func (s *scorer) semanticSimilarity(story *taxonomy.Story) float64 {
	if len(s.pathwayKeywords) == 0 {
		return 0
	}

	storyKeywords := Keywords(story.Title)
	summaryKeywords := Keywords(story.Summary)
	if len(summaryKeywords) > summaryTokenLimit {
		summaryKeywords = summaryKeywords[:summaryTokenLimit]
	}
	storyKeywords = append(storyKeywords, summaryKeywords...)

	matched := 0
	for _, keyword := range s.pathwayKeywords {
		for _, storyKeyword := range storyKeywords {
			if strings.Contains(storyKeyword, keyword) || strings.Contains(keyword, storyKeyword) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(s.pathwayKeywords)) * 100
}

// popularity blends capped kudos, hits, and bookmarks counts into 0..100.
// Missing counts contribute zero rather than failing.
func popularity(story *taxonomy.Story) float64 {
	kudos := min(story.Kudos, kudosCap)
	hits := min(story.Hits, hitsCap)
	bookmarks := min(story.Bookmarks, bookmarksCap)

	blended := kudosShare*float64(kudos)/kudosCap +
		hitsShare*float64(hits)/hitsCap +
		bookmarksShare*float64(bookmarks)/bookmarksCap
	return blended * 100
}

// recency gives 100 for updates within 30 days, decays linearly to zero at
// 365 days, and treats a zero timestamp as stale (score 0).
func recency(updatedAt, scoredAt time.Time) float64 {
	if updatedAt.IsZero() {
		return 0
	}
	days := scoredAt.Sub(updatedAt).Hours() / 24
	switch {
	case days <= recencyFullDays:
		return 100
	case days >= recencyZeroDays:
		return 0
	default:
		return 100 * (recencyZeroDays - days) / (recencyZeroDays - recencyFullDays)
	}
}

// userAlignment awards 25 points per matched preference dimension, scaled
// so full alignment on all supplied dimensions yields 100. With no
// preferences supplied the factor is a neutral 50.
func (s *scorer) userAlignment(story *taxonomy.Story, tagNameSet map[string]bool) float64 {
	preferences := s.preferences
	if preferences == nil {
		return 50
	}

	supplied := 0
	points := 0.0

	if preferences.Rating != nil {
		supplied++
		if strings.EqualFold(*preferences.Rating, story.Rating) {
			points += 25
		}
	}
	if preferences.Length != nil {
		supplied++
		if strings.EqualFold(*preferences.Length, LengthBucket(story.WordCount)) {
			points += 25
		}
	}
	if preferences.Status != nil {
		supplied++
		if strings.EqualFold(*preferences.Status, story.Status) {
			points += 25
		}
	}
	if len(preferences.BoostTags) > 0 {
		supplied++
		for _, tag := range preferences.BoostTags {
			if tagNameSet[tag] {
				points += 25
				break
			}
		}
	}

	if supplied == 0 {
		return 50
	}
	return points * 4 / float64(supplied)
}

// Keywords tokenizes a name or text on slashes, dashes, and whitespace and
// lowercases the tokens.
func Keywords(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == '/' || r == '-' || r == ' ' || r == '\t' || r == '\n'
	})
	keywords := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token != "" {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// # Filtering

func applyFilters(results []*RankedStory, filters Filters) ([]*RankedStory, []string) {
	applied := make([]string, 0, 5)
	if len(filters.Ratings) > 0 {
		applied = append(applied, "rating")
	}
	if len(filters.Statuses) > 0 {
		applied = append(applied, "status")
	}
	if filters.MinWords != nil || filters.MaxWords != nil {
		applied = append(applied, "word_count")
	}
	if filters.UpdatedAfter != nil {
		applied = append(applied, "updated_after")
	}
	if filters.MinScore != nil {
		applied = append(applied, "min_relevance")
	}
	if len(applied) == 0 {
		return results, applied
	}

	filtered := make([]*RankedStory, 0, len(results))
	for _, result := range results {
		story := result.Story
		if len(filters.Ratings) > 0 && !slices.Contains(filters.Ratings, story.Rating) {
			continue
		}
		if len(filters.Statuses) > 0 && !slices.Contains(filters.Statuses, story.Status) {
			continue
		}
		if filters.MinWords != nil && story.WordCount < *filters.MinWords {
			continue
		}
		if filters.MaxWords != nil && story.WordCount > *filters.MaxWords {
			continue
		}
		if filters.UpdatedAfter != nil && !story.UpdatedAt.After(*filters.UpdatedAfter) {
			continue
		}
		if filters.MinScore != nil && result.RelevanceScore < *filters.MinScore {
			continue
		}
		filtered = append(filtered, result)
	}
	return filtered, applied
}

// # Sorting & Pagination

// sortResults orders results in place. The sort is stable: ties preserve
// their prior relative order, so sorting an already-sorted list is a no-op.
func sortResults(results []*RankedStory, sortSpec Sort) {
	field := sortSpec.Field
	if field == "" {
		field = SortRelevance
	}
	direction := sortSpec.Direction
	if direction == "" {
		direction = Descending
	}

	less := func(a, b *RankedStory) bool {
		switch field {
		case SortUpdated:
			return a.Story.UpdatedAt.Before(b.Story.UpdatedAt)
		case SortKudos:
			return a.Story.Kudos < b.Story.Kudos
		case SortWords:
			return a.Story.WordCount < b.Story.WordCount
		default:
			return a.RelevanceScore < b.RelevanceScore
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if direction == Ascending {
			return less(results[i], results[j])
		}
		return less(results[j], results[i])
	})
}

func paginate(results []*RankedStory, limit, offset int) []*RankedStory {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []*RankedStory{}
	}
	end := len(results)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := make([]*RankedStory, end-offset)
	copy(page, results[offset:end])
	return page
}

func distribution(results []*RankedStory) Distribution {
	d := Distribution{}
	for _, result := range results {
		switch score := result.RelevanceScore; {
		case score >= 90:
			d.Excellent++
		case score >= 70:
			d.Good++
		case score >= 50:
			d.Fair++
		default:
			d.Poor++
		}
	}
	return d
}
