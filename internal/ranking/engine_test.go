// Copyright (c) 2026 Plotweave. All rights reserved.

package ranking_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave/plotweave/internal/pathway"
	"github.com/plotweave/plotweave/internal/ranking"
	"github.com/plotweave/plotweave/internal/taxonomy"
	"github.com/plotweave/plotweave/pkg/pointer"
)

var scoredAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRanker() *ranking.Engine {
	return ranking.NewEngine(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

// rankingSnapshot builds a small fandom with three tags, one plot block,
// and three stories with deliberately distinct popularity and recency.
func rankingSnapshot() *taxonomy.Snapshot {
	return &taxonomy.Snapshot{
		Fandom: &taxonomy.Fandom{ID: 1, Name: "Harry Potter", Slug: "harry-potter"},
		Tags: []*taxonomy.Tag{
			{ID: 10, FandomID: 1, Name: "time-travel", Category: "plot-device", IsActive: true},
			{ID: 11, FandomID: 1, Name: "harry/hermione", Category: "relationship", IsActive: true},
			{ID: 12, FandomID: 1, Name: "angst", Category: "genre", IsActive: true},
		},
		PlotBlocks: []*taxonomy.PlotBlock{
			{ID: 30, FandomID: 1, Name: "Goblin Inheritance", Category: "inheritance", IsActive: true},
		},
		Stories: []*taxonomy.Story{
			{
				ID: 100, FandomID: 1, Title: "Quiet Days", Summary: "",
				TagIDs:    []int64{10},
				WordCount: 42_000, Status: "complete", Rating: "teen",
				UpdatedAt: scoredAt.AddDate(0, 0, -10), IsActive: true,
			},
			{
				ID: 101, FandomID: 1, Title: "Turning the Hourglass", Summary: "A time-travel romance.",
				TagIDs: []int64{10, 11}, PlotBlockIDs: []int64{30},
				WordCount: 120_000, Status: "in-progress", Rating: "mature",
				Kudos: 10_000, Hits: 100_000, Bookmarks: 5_000,
				UpdatedAt: scoredAt.AddDate(0, 0, -5), IsActive: true,
			},
			{
				ID: 102, FandomID: 1, Title: "Unrelated Drabble", Summary: "Nothing overlaps here.",
				TagIDs:    []int64{12},
				WordCount: 2_000, Status: "complete", Rating: "general",
				UpdatedAt: scoredAt.AddDate(-2, 0, 0), IsActive: true,
			},
		},
	}
}

func singleTagPathway() *pathway.Pathway {
	return &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "time-travel", Position: 0},
	}}
}

/*
TestEngine_WorkedExample pins the exact arithmetic of one fully traced
score: a story matching every pathway item, updated 10 days ago, with no
popularity counts, no category or keyword overlap, and no supplied user
preferences.

	0.40*100 (exact) + 0.08*100 (recency) + 0.07*50 (neutral alignment) = 51.5
*/
func TestEngine_WorkedExample(t *testing.T) {
	snapshot := &taxonomy.Snapshot{
		Fandom: &taxonomy.Fandom{ID: 1, Name: "Harry Potter", Slug: "harry-potter"},
		Tags: []*taxonomy.Tag{
			{ID: 10, FandomID: 1, Name: "time-travel", IsActive: true},
		},
		Stories: []*taxonomy.Story{
			{
				ID: 100, FandomID: 1, Title: "Quiet Days",
				TagIDs:    []int64{10},
				UpdatedAt: scoredAt.AddDate(0, 0, -10), IsActive: true,
			},
		},
	}

	page := testRanker().Rank(snapshot, ranking.Request{
		Pathway:  singleTagPathway(),
		ScoredAt: scoredAt,
	})

	require.Len(t, page.Results, 1)
	result := page.Results[0]

	assert.InDelta(t, 100, result.Factors.ExactMatches, 1e-9)
	assert.InDelta(t, 0, result.Factors.CategoryMatches, 1e-9)
	assert.InDelta(t, 0, result.Factors.SemanticSimilarity, 1e-9)
	assert.InDelta(t, 0, result.Factors.Popularity, 1e-9)
	assert.InDelta(t, 100, result.Factors.Recency, 1e-9)
	assert.InDelta(t, 50, result.Factors.UserAlignment, 1e-9)
	assert.InDelta(t, 51.5, result.RelevanceScore, 1e-9)
	assert.Equal(t, []string{"time-travel"}, result.MatchedTags)
	assert.Equal(t, 1, result.SearchRank)
}

/*
TestEngine_WeightsSumToOne guards the factor weights against drifting away
from a 0..100 final score.
*/
func TestEngine_WeightsSumToOne(t *testing.T) {
	sum := ranking.WeightExactMatches +
		ranking.WeightCategoryMatches +
		ranking.WeightSemanticSimilarity +
		ranking.WeightPopularity +
		ranking.WeightRecency +
		ranking.WeightUserAlignment
	assert.InDelta(t, 1.0, sum, 1e-9)
}

/*
TestEngine_ScoresStayInRange ranks a saturated story (every factor at or
near its cap) and a barren one, and checks both land inside 0..100.
*/
func TestEngine_ScoresStayInRange(t *testing.T) {
	page := testRanker().Rank(rankingSnapshot(), ranking.Request{
		Pathway:  singleTagPathway(),
		ScoredAt: scoredAt,
	})

	require.Len(t, page.Results, 3)
	for _, result := range page.Results {
		assert.GreaterOrEqual(t, result.RelevanceScore, 0.0)
		assert.LessOrEqual(t, result.RelevanceScore, 100.0)
	}
}

/*
TestEngine_PopularityCaps verifies a story at every popularity cap scores
the full 100 on that factor, and that counts beyond the caps add nothing.
*/
func TestEngine_PopularityCaps(t *testing.T) {
	snapshot := rankingSnapshot()
	capped := snapshot.Stories[1]
	require.Equal(t, int64(101), capped.ID)

	beyond := *capped
	beyond.ID = 103
	beyond.Kudos = 50_000
	beyond.Hits = 900_000
	beyond.Bookmarks = 20_000
	snapshot.Stories = append(snapshot.Stories, &beyond)

	page := testRanker().Rank(snapshot, ranking.Request{
		Pathway:  singleTagPathway(),
		ScoredAt: scoredAt,
	})

	byID := make(map[int64]*ranking.RankedStory)
	for _, result := range page.Results {
		byID[result.Story.ID] = result
	}

	assert.InDelta(t, 100, byID[101].Factors.Popularity, 1e-9)
	assert.InDelta(t, 100, byID[103].Factors.Popularity, 1e-9)
	assert.InDelta(t, 0, byID[100].Factors.Popularity, 1e-9)
}

/*
TestEngine_RecencyDecay covers the three recency regimes: full score inside
30 days, linear decay between 30 and 365, zero at and beyond 365 days. A
story with no update timestamp is treated as stale.
*/
func TestEngine_RecencyDecay(t *testing.T) {
	tests := []struct {
		name      string
		updatedAt time.Time
		want      float64
	}{
		{"within full window", scoredAt.AddDate(0, 0, -10), 100},
		{"at full boundary", scoredAt.AddDate(0, 0, -30), 100},
		{"midway through decay", scoredAt.Add(-4740 * time.Hour), 50}, // 197.5 days
		{"at zero boundary", scoredAt.AddDate(0, 0, -365), 0},
		{"ancient", scoredAt.AddDate(-3, 0, 0), 0},
		{"no timestamp", time.Time{}, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			snapshot := &taxonomy.Snapshot{
				Tags: []*taxonomy.Tag{{ID: 10, Name: "time-travel", IsActive: true}},
				Stories: []*taxonomy.Story{
					{ID: 100, TagIDs: []int64{10}, UpdatedAt: test.updatedAt, IsActive: true},
				},
			}

			page := testRanker().Rank(snapshot, ranking.Request{
				Pathway:  singleTagPathway(),
				ScoredAt: scoredAt,
			})

			require.Len(t, page.Results, 1)
			assert.InDelta(t, test.want, page.Results[0].Factors.Recency, 1e-9)
		})
	}
}

/*
TestEngine_UserAlignment walks the alignment scaling: matched dimensions
earn 25 points each, scaled so full alignment on the supplied dimensions
yields 100, and absent preferences score the neutral midpoint.
*/
func TestEngine_UserAlignment(t *testing.T) {
	tests := []struct {
		name        string
		preferences *ranking.Preferences
		want        float64
	}{
		{"nil preferences", nil, 50},
		{"empty preferences", &ranking.Preferences{}, 50},
		{
			"single matched dimension",
			&ranking.Preferences{Rating: pointer.To("mature")},
			100,
		},
		{
			"single missed dimension",
			&ranking.Preferences{Rating: pointer.To("general")},
			0,
		},
		{
			"two supplied one matched",
			&ranking.Preferences{Rating: pointer.To("mature"), Status: pointer.To("complete")},
			50,
		},
		{
			"all four matched",
			&ranking.Preferences{
				Rating:    pointer.To("mature"),
				Length:    pointer.To(ranking.LengthLong),
				Status:    pointer.To("in-progress"),
				BoostTags: []string{"harry/hermione"},
			},
			100,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			page := testRanker().Rank(rankingSnapshot(), ranking.Request{
				Pathway:     singleTagPathway(),
				Preferences: test.preferences,
				ScoredAt:    scoredAt,
			})

			byID := make(map[int64]*ranking.RankedStory)
			for _, result := range page.Results {
				byID[result.Story.ID] = result
			}
			require.Contains(t, byID, int64(101))
			assert.InDelta(t, test.want, byID[101].Factors.UserAlignment, 1e-9)
		})
	}
}

/*
TestEngine_LengthBuckets pins the word-count bucket boundaries.
*/
func TestEngine_LengthBuckets(t *testing.T) {
	assert.Equal(t, ranking.LengthShort, ranking.LengthBucket(0))
	assert.Equal(t, ranking.LengthShort, ranking.LengthBucket(9_999))
	assert.Equal(t, ranking.LengthMedium, ranking.LengthBucket(10_000))
	assert.Equal(t, ranking.LengthMedium, ranking.LengthBucket(49_999))
	assert.Equal(t, ranking.LengthLong, ranking.LengthBucket(50_000))
	assert.Equal(t, ranking.LengthLong, ranking.LengthBucket(149_999))
	assert.Equal(t, ranking.LengthEpic, ranking.LengthBucket(150_000))
}

/*
TestEngine_Filters checks each post-scoring filter narrows the result set
and reports its name in the applied-filter list.
*/
func TestEngine_Filters(t *testing.T) {
	updatedAfter := scoredAt.AddDate(0, -1, 0)

	tests := []struct {
		name        string
		filters     ranking.Filters
		wantIDs     []int64
		wantApplied []string
	}{
		{
			"no filters",
			ranking.Filters{},
			[]int64{100, 101, 102},
			[]string{},
		},
		{
			"rating",
			ranking.Filters{Ratings: []string{"teen", "general"}},
			[]int64{100, 102},
			[]string{"rating"},
		},
		{
			"status",
			ranking.Filters{Statuses: []string{"in-progress"}},
			[]int64{101},
			[]string{"status"},
		},
		{
			"word count window",
			ranking.Filters{MinWords: pointer.To(10_000), MaxWords: pointer.To(100_000)},
			[]int64{100},
			[]string{"word_count"},
		},
		{
			"updated after",
			ranking.Filters{UpdatedAfter: &updatedAfter},
			[]int64{100, 101},
			[]string{"updated_after"},
		},
		{
			"minimum relevance",
			ranking.Filters{MinScore: pointer.To(40.0)},
			[]int64{100, 101},
			[]string{"min_relevance"},
		},
		{
			"combined",
			ranking.Filters{Statuses: []string{"complete"}, MaxWords: pointer.To(5_000)},
			[]int64{102},
			[]string{"status", "word_count"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			page := testRanker().Rank(rankingSnapshot(), ranking.Request{
				Pathway:  singleTagPathway(),
				Filters:  test.filters,
				ScoredAt: scoredAt,
			})

			ids := make([]int64, 0, len(page.Results))
			for _, result := range page.Results {
				ids = append(ids, result.Story.ID)
			}
			assert.ElementsMatch(t, test.wantIDs, ids)
			assert.Equal(t, test.wantApplied, page.Stats.AppliedFilters)
			assert.Equal(t, 3, page.Stats.TotalCandidates)
			assert.Equal(t, len(test.wantIDs), page.Stats.TotalFiltered)
			assert.Equal(t, len(test.wantIDs), page.Total)
		})
	}
}

/*
TestEngine_SortOrders exercises each sort field in both directions and
checks search ranks follow the sorted order, not the input order.
*/
func TestEngine_SortOrders(t *testing.T) {
	tests := []struct {
		name    string
		sort    ranking.Sort
		wantIDs []int64
	}{
		{"default relevance descending", ranking.Sort{}, []int64{101, 100, 102}},
		{"relevance ascending", ranking.Sort{Field: ranking.SortRelevance, Direction: ranking.Ascending}, []int64{102, 100, 101}},
		{"updated descending", ranking.Sort{Field: ranking.SortUpdated, Direction: ranking.Descending}, []int64{101, 100, 102}},
		{"kudos descending", ranking.Sort{Field: ranking.SortKudos, Direction: ranking.Descending}, []int64{101, 100, 102}},
		{"words ascending", ranking.Sort{Field: ranking.SortWords, Direction: ranking.Ascending}, []int64{102, 100, 101}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			page := testRanker().Rank(rankingSnapshot(), ranking.Request{
				Pathway:  singleTagPathway(),
				Sort:     test.sort,
				ScoredAt: scoredAt,
			})

			require.Len(t, page.Results, len(test.wantIDs))
			for i, wantID := range test.wantIDs {
				assert.Equal(t, wantID, page.Results[i].Story.ID)
				assert.Equal(t, i+1, page.Results[i].SearchRank)
			}
		})
	}
}

/*
TestEngine_Deterministic runs the same ranking call repeatedly and checks
the pages are identical, including tie ordering.
*/
func TestEngine_Deterministic(t *testing.T) {
	request := ranking.Request{Pathway: singleTagPathway(), ScoredAt: scoredAt}

	first := testRanker().Rank(rankingSnapshot(), request)
	for i := 0; i < 10; i++ {
		again := testRanker().Rank(rankingSnapshot(), request)
		require.Len(t, again.Results, len(first.Results))
		for i, result := range again.Results {
			assert.Equal(t, first.Results[i].Story.ID, result.Story.ID)
			assert.InDelta(t, first.Results[i].RelevanceScore, result.RelevanceScore, 1e-12)
		}
	}
}

/*
TestEngine_Pagination checks limit and offset slice the sorted results,
ranks stay global across pages, and an offset past the end yields an empty
page without touching the totals.
*/
func TestEngine_Pagination(t *testing.T) {
	base := ranking.Request{Pathway: singleTagPathway(), ScoredAt: scoredAt}

	first := base
	first.Limit = 2
	page := testRanker().Rank(rankingSnapshot(), first)
	require.Len(t, page.Results, 2)
	assert.Equal(t, 1, page.Results[0].SearchRank)
	assert.Equal(t, 3, page.Total)

	second := base
	second.Limit = 2
	second.Offset = 2
	page = testRanker().Rank(rankingSnapshot(), second)
	require.Len(t, page.Results, 1)
	assert.Equal(t, 3, page.Results[0].SearchRank)
	assert.Equal(t, 3, page.Total)

	past := base
	past.Offset = 10
	page = testRanker().Rank(rankingSnapshot(), past)
	assert.Empty(t, page.Results)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 3, page.Stats.TotalFiltered)
}

/*
TestEngine_Distribution buckets the filtered scores into the relevance
histogram.
*/
func TestEngine_Distribution(t *testing.T) {
	page := testRanker().Rank(rankingSnapshot(), ranking.Request{
		Pathway:  singleTagPathway(),
		ScoredAt: scoredAt,
	})

	d := page.Stats.Distribution
	assert.Equal(t, len(page.Results), d.Excellent+d.Good+d.Fair+d.Poor)
	for _, result := range page.Results {
		switch score := result.RelevanceScore; {
		case score >= 90:
			assert.Positive(t, d.Excellent)
		case score >= 70:
			assert.Positive(t, d.Good)
		case score >= 50:
			assert.Positive(t, d.Fair)
		default:
			assert.Positive(t, d.Poor)
		}
	}
}

/*
TestEngine_EmptyPathway ranks with no selections at all: every match
factor is zero and only popularity, recency, and neutral alignment can
contribute.
*/
func TestEngine_EmptyPathway(t *testing.T) {
	page := testRanker().Rank(rankingSnapshot(), ranking.Request{
		Pathway:  &pathway.Pathway{},
		ScoredAt: scoredAt,
	})

	require.Len(t, page.Results, 3)
	for _, result := range page.Results {
		assert.Zero(t, result.Factors.ExactMatches)
		assert.Zero(t, result.Factors.CategoryMatches)
		assert.Zero(t, result.Factors.SemanticSimilarity)
		assert.Empty(t, result.MatchedTags)
		assert.Empty(t, result.MatchedPlotBlocks)
	}
}

/*
TestKeywords covers the tokenizer the semantic factor relies on.
*/
func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"harry", "hermione"}, ranking.Keywords("Harry/Hermione"))
	assert.Equal(t, []string{"time", "travel"}, ranking.Keywords("time-travel"))
	assert.Equal(t, []string{"goblin", "inheritance"}, ranking.Keywords("Goblin  Inheritance"))
	assert.Empty(t, ranking.Keywords(""))
	assert.Empty(t, ranking.Keywords(" / - "))
}
