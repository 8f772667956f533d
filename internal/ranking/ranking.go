// Copyright (c) 2026 Plotweave. All rights reserved.

/*
Package ranking scores candidate stories against a pathway and produces the
ranked, filtered, paginated result pages the discovery surface serves.

Scoring combines six weighted factors, each normalized to the 0..100 range.
The weights sum to exactly 1.00, so a final score always stays in 0..100:

	exact matches       0.40
	category matches    0.20
	semantic similarity 0.15
	popularity          0.10
	recency             0.08
	user alignment      0.07

The semantic factor is a deliberately crude keyword-overlap heuristic, not
an NLP model; it exists to nudge ties, not to understand prose.
*/
package ranking

import (
	"time"

	"github.com/plotweave/plotweave/internal/pathway"
	"github.com/plotweave/plotweave/internal/taxonomy"
)

// # Factor Weights

const (
	WeightExactMatches       = 0.40
	WeightCategoryMatches    = 0.20
	WeightSemanticSimilarity = 0.15
	WeightPopularity         = 0.10
	WeightRecency            = 0.08
	WeightUserAlignment      = 0.07
)

// Popularity blending caps and shares.
const (
	kudosCap     = 10_000
	hitsCap      = 100_000
	bookmarksCap = 5_000

	kudosShare     = 0.40
	hitsShare      = 0.35
	bookmarksShare = 0.25
)

// Recency decays linearly from full score at 30 days to zero at 365 days.
const (
	recencyFullDays = 30
	recencyZeroDays = 365
)

// summaryTokenLimit truncates story summaries before keyword extraction.
const summaryTokenLimit = 50

// scoringChunkSize bounds how many stories are scored per batch. Chunking
// caps per-iteration latency and never changes the result.
const scoringChunkSize = 512

// # Word-Count Buckets

const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
	LengthEpic   = "epic"
)

// LengthBucket maps a word count onto its bucket name.
func LengthBucket(wordCount int) string {
	switch {
	case wordCount < 10_000:
		return LengthShort
	case wordCount < 50_000:
		return LengthMedium
	case wordCount < 150_000:
		return LengthLong
	default:
		return LengthEpic
	}
}

// # Request Shapes

// Preferences captures optional per-user ranking preferences. Every field
// is optional; an absent field simply does not participate in alignment.
type Preferences struct {
	Rating    *string  `json:"rating,omitempty"`
	Length    *string  `json:"length,omitempty"`
	Status    *string  `json:"status,omitempty"`
	BoostTags []string `json:"boost_tags,omitempty"`
}

// Filters are applied after scoring; all present filters are AND'd.
type Filters struct {
	Ratings      []string   `json:"ratings,omitempty"`
	Statuses     []string   `json:"statuses,omitempty"`
	MinWords     *int       `json:"min_words,omitempty"`
	MaxWords     *int       `json:"max_words,omitempty"`
	UpdatedAfter *time.Time `json:"updated_after,omitempty"`
	MinScore     *float64   `json:"min_score,omitempty"`
}

// SortField selects the ordering key.
type SortField string

const (
	SortRelevance SortField = "relevance"
	SortUpdated   SortField = "updated"
	SortKudos     SortField = "kudos"
	SortWords     SortField = "words"
)

// Direction is an explicit sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Sort is the requested ordering. The zero value means relevance descending.
type Sort struct {
	Field     SortField `json:"field"`
	Direction Direction `json:"direction"`
}

// Request bundles one ranking invocation's inputs.
type Request struct {
	Pathway     *pathway.Pathway
	Preferences *Preferences
	Filters     Filters
	Sort        Sort
	Limit       int
	Offset      int

	// ScoredAt anchors the recency factor. The zero value means "now".
	ScoredAt time.Time
}

// # Result Shapes

// Factors is the per-story score breakdown, each entry in 0..100.
type Factors struct {
	ExactMatches       float64 `json:"exact_matches"`
	CategoryMatches    float64 `json:"category_matches"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	Popularity         float64 `json:"popularity"`
	Recency            float64 `json:"recency"`
	UserAlignment      float64 `json:"user_alignment"`
}

// RankedStory is one scored result.
type RankedStory struct {
	Story             *taxonomy.Story `json:"story"`
	RelevanceScore    float64         `json:"relevance_score"`
	Factors           Factors         `json:"factors"`
	MatchedTags       []string        `json:"matched_tags"`
	MatchedPlotBlocks []string        `json:"matched_plot_blocks"`

	// SearchRank is the 1-based position in the full sorted result list,
	// assigned before pagination so ranks stay stable across pages.
	SearchRank int `json:"search_rank"`
}

// Distribution is the relevance histogram over the filtered result set.
type Distribution struct {
	Excellent int `json:"excellent"` // [90, 100]
	Good      int `json:"good"`      // [70, 90)
	Fair      int `json:"fair"`      // [50, 70)
	Poor      int `json:"poor"`      // [0, 50)
}

// Stats summarizes a ranking call.
type Stats struct {
	TotalCandidates int          `json:"total_candidates"`
	TotalFiltered   int          `json:"total_filtered"`
	Distribution    Distribution `json:"distribution"`
	AppliedFilters  []string     `json:"applied_filters"`
}

// Page is one paginated slice of the ranked results.
type Page struct {
	Results []*RankedStory `json:"results"`
	Stats   Stats          `json:"stats"`

	// Total is the filtered (pre-pagination) result count.
	Total int `json:"total"`
}
