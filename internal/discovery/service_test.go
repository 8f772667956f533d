// Copyright (c) 2026 Plotweave. All rights reserved.

package discovery_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave/plotweave/internal/discovery"
	"github.com/plotweave/plotweave/internal/pathway"
	"github.com/plotweave/plotweave/internal/platform/apperr"
	"github.com/plotweave/plotweave/internal/ranking"
	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/internal/taxonomy"
	"github.com/plotweave/plotweave/pkg/pointer"
)

// # Fakes

type fakeRepository struct {
	snapshot *taxonomy.Snapshot
	err      error
}

func (repository *fakeRepository) Snapshot(_ context.Context, _ int64, _ bool) (*taxonomy.Snapshot, error) {
	if repository.err != nil {
		return nil, repository.err
	}
	return repository.snapshot, nil
}

func (repository *fakeRepository) ListFandoms(_ context.Context, _ bool) ([]*taxonomy.Fandom, error) {
	return []*taxonomy.Fandom{repository.snapshot.Fandom}, nil
}

func (repository *fakeRepository) GetFandomBySlug(_ context.Context, _ string) (*taxonomy.Fandom, error) {
	return repository.snapshot.Fandom, nil
}

type fakeRuleStore struct {
	rules []*rules.Rule
	err   error
}

func (store *fakeRuleStore) ListActiveRules(_ context.Context, _ int64) ([]*rules.Rule, error) {
	if store.err != nil {
		return nil, store.err
	}
	return store.rules, nil
}

func testService(snapshot *taxonomy.Snapshot, storedRules []*rules.Rule) *discovery.Service {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return discovery.NewService(
		taxonomy.NewService(&fakeRepository{snapshot: snapshot}, logger),
		&fakeRuleStore{rules: storedRules},
		rules.NewEngine(logger),
		ranking.NewEngine(logger),
		logger,
	)
}

// # Fixtures

// discoverySnapshot holds two stories matching the default pathway and four
// that match nothing, with distinct word counts so padding order is fixed.
func discoverySnapshot() *taxonomy.Snapshot {
	recent := time.Now().AddDate(0, 0, -7)
	return &taxonomy.Snapshot{
		Fandom: &taxonomy.Fandom{ID: 1, Name: "Harry Potter", Slug: "harry-potter", IsActive: true},
		Tags: []*taxonomy.Tag{
			{ID: 10, FandomID: 1, Name: "time-travel", Category: "plot-device", IsActive: true},
			{ID: 11, FandomID: 1, Name: "harry/hermione", Category: "relationship", IsActive: true},
			{ID: 12, FandomID: 1, Name: "angst", Category: "genre", IsActive: true},
			{ID: 13, FandomID: 1, Name: "fluff", Category: "genre", IsActive: true},
			{ID: 14, FandomID: 1, Name: "hermione-granger", Category: "character", IsActive: true},
		},
		PlotBlocks: []*taxonomy.PlotBlock{
			{ID: 30, FandomID: 1, Name: "Goblin Inheritance", Category: "inheritance", IsActive: true},
		},
		Stories: []*taxonomy.Story{
			{ID: 100, FandomID: 1, Title: "Turning Back", TagIDs: []int64{10, 11}, WordCount: 80_000, Status: "complete", Rating: "teen", UpdatedAt: recent, IsActive: true},
			{ID: 101, FandomID: 1, Title: "Second Chances", TagIDs: []int64{10}, WordCount: 30_000, Status: "complete", Rating: "teen", UpdatedAt: recent, IsActive: true},
			{ID: 102, FandomID: 1, Title: "Quiet Mornings", TagIDs: []int64{13}, WordCount: 60_000, Status: "complete", Rating: "general", UpdatedAt: recent, IsActive: true},
			{ID: 103, FandomID: 1, Title: "Rainy Afternoons", TagIDs: []int64{13}, WordCount: 50_000, Status: "complete", Rating: "general", UpdatedAt: recent, IsActive: true},
			{ID: 104, FandomID: 1, Title: "Winter Evenings", TagIDs: []int64{12}, WordCount: 40_000, Status: "complete", Rating: "general", UpdatedAt: recent, IsActive: true},
			{ID: 105, FandomID: 1, Title: "Summer Nights", TagIDs: []int64{12}, WordCount: 20_000, Status: "complete", Rating: "general", UpdatedAt: recent, IsActive: true},
		},
	}
}

func searchPathway() []pathway.Item {
	return []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "time-travel", Category: "plot-device", Position: 0},
		{ID: "b", Type: pathway.ItemTag, Name: "harry/hermione", Category: "relationship", Position: 1},
	}
}

// # PerformSearch

/*
TestService_ShapePreconditions covers the fatal shape rules: an empty
pathway, duplicated item ids, and unknown item types reject the request
before any data is loaded.
*/
func TestService_ShapePreconditions(t *testing.T) {
	tests := []struct {
		name  string
		items []pathway.Item
	}{
		{"empty pathway", []pathway.Item{}},
		{
			"duplicate item ids",
			[]pathway.Item{
				{ID: "a", Type: pathway.ItemTag, Name: "time-travel", Position: 0},
				{ID: "a", Type: pathway.ItemTag, Name: "angst", Position: 1},
			},
		},
		{
			"unknown item type",
			[]pathway.Item{
				{ID: "a", Type: "character", Name: "hermione-granger", Position: 0},
			},
		},
	}

	service := testService(discoverySnapshot(), nil)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{Pathway: test.items})
			require.Error(t, err)
			assert.Nil(t, response)

			appError := apperr.As(err)
			require.NotNil(t, appError)
			assert.Equal(t, "VALIDATION_ERROR", appError.Code)
		})
	}
}

/*
TestService_InactiveFandomIsNotFound verifies the snapshot precondition:
an inactive fandom row surfaces as a 404, not as an empty result set.
*/
func TestService_InactiveFandomIsNotFound(t *testing.T) {
	snapshot := discoverySnapshot()
	snapshot.Fandom.IsActive = false

	service := testService(snapshot, nil)
	response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{Pathway: searchPathway()})

	require.Error(t, err)
	assert.Nil(t, response)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "NOT_FOUND", appError.Code)
}

/*
TestService_ScopeErrorsInvalidate checks an unresolved pathway item still
yields a full response, with a scope error recorded and the validation
flipped invalid.
*/
func TestService_ScopeErrorsInvalidate(t *testing.T) {
	items := append(searchPathway(), pathway.Item{
		ID: "c", Type: pathway.ItemTag, Name: "muggle-quidditch", Category: "sport", Position: 2,
	})

	service := testService(discoverySnapshot(), nil)
	response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{Pathway: items})

	require.NoError(t, err)
	assert.False(t, response.Validation.IsValid)
	require.Len(t, response.Validation.Errors, 1)
	assert.Equal(t, "fandom_scope", response.Validation.Errors[0].RuleName)
	assert.Contains(t, response.Validation.Errors[0].Message, "muggle-quidditch")
	assert.NotEmpty(t, response.Results)
}

/*
TestService_NonContiguousPositionsWarn checks gapped position values add a
shape warning without invalidating the pathway.
*/
func TestService_NonContiguousPositionsWarn(t *testing.T) {
	items := searchPathway()
	items[1].Position = 3

	service := testService(discoverySnapshot(), nil)
	response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{Pathway: items})

	require.NoError(t, err)
	assert.True(t, response.Validation.IsValid)
	require.Len(t, response.Validation.Warnings, 1)
	assert.Equal(t, "pathway_shape", response.Validation.Warnings[0].RuleName)
}

/*
TestService_StoredRulesFire routes a stored suggestion rule through the
search pipeline and checks it lands in the validation block.
*/
func TestService_StoredRulesFire(t *testing.T) {
	condition, err := rules.NewCombination([]string{"time-travel", "harry/hermione"})
	require.NoError(t, err)
	action, err := rules.NewAction(rules.ActionSuggestion, "suggestion", "Consider adding angst.", "Add the angst tag.")
	require.NoError(t, err)

	stored := []*rules.Rule{{
		Name:       "time-travel-pairing",
		Priority:   110,
		IsActive:   true,
		Conditions: []rules.Condition{condition},
		Actions:    []rules.Action{action},
	}}

	service := testService(discoverySnapshot(), stored)
	response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{Pathway: searchPathway()})

	require.NoError(t, err)
	assert.True(t, response.Validation.IsValid)
	require.Len(t, response.Validation.Suggestions, 1)
	assert.Equal(t, "time-travel-pairing", response.Validation.Suggestions[0].RuleName)
}

/*
TestService_TagClassRulesFire checks class sub-rules compiled from the
snapshot are evaluated alongside stored rules: a max-1 shipping class with
two selected members produces an error.
*/
func TestService_TagClassRulesFire(t *testing.T) {
	snapshot := discoverySnapshot()
	snapshot.TagClasses = []*taxonomy.TagClass{{
		ID: 20, FandomID: 1, Name: "harry-shipping", IsActive: true,
		SubRules: taxonomy.SubRules{
			InstanceLimits: &taxonomy.InstanceLimits{Max: pointer.To(1)},
		},
	}}
	snapshot.Tags = append(snapshot.Tags,
		&taxonomy.Tag{ID: 15, FandomID: 1, Name: "harry/ginny", Category: "relationship", TagClassID: pointer.To(int64(20)), IsActive: true},
	)
	for _, tag := range snapshot.Tags {
		if tag.Name == "harry/hermione" {
			tag.TagClassID = pointer.To(int64(20))
		}
	}

	items := append(searchPathway(), pathway.Item{
		ID: "c", Type: pathway.ItemTag, Name: "harry/ginny", Category: "relationship", Position: 2,
	})

	service := testService(snapshot, nil)
	response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{Pathway: items})

	require.NoError(t, err)
	assert.False(t, response.Validation.IsValid)
	require.NotEmpty(t, response.Validation.Errors)
	assert.Equal(t, "class harry-shipping: max instances", response.Validation.Errors[0].RuleName)
}

/*
TestService_PadResults tops a two-entry page up to the result floor with
the fandom's longest remaining stories, ranks continuing where the scored
page left off.
*/
func TestService_PadResults(t *testing.T) {
	service := testService(discoverySnapshot(), nil)
	response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{
		Pathway:    searchPathway(),
		Limit:      2,
		PadResults: true,
	})

	require.NoError(t, err)
	require.Len(t, response.Results, 5)

	// Scored page first: the full match outranks the partial one.
	assert.Equal(t, int64(100), response.Results[0].Story.ID)
	assert.Equal(t, int64(101), response.Results[1].Story.ID)

	// Padding follows word count descending.
	assert.Equal(t, int64(102), response.Results[2].Story.ID)
	assert.Equal(t, int64(103), response.Results[3].Story.ID)
	assert.Equal(t, int64(104), response.Results[4].Story.ID)

	for i, result := range response.Results {
		assert.Equal(t, i+1, result.SearchRank)
	}
	for _, padded := range response.Results[2:] {
		assert.Zero(t, padded.RelevanceScore)
		assert.Empty(t, padded.MatchedTags)
	}

	// Stats describe the scored set, not the padded list.
	assert.Equal(t, 6, response.Stats.TotalCandidates)
	assert.Equal(t, 6, response.Stats.TotalFiltered)
}

/*
TestService_PaddingStopsWhenCandidatesRunOut pads a two-story fandom and
checks the list simply stays short.
*/
func TestService_PaddingStopsWhenCandidatesRunOut(t *testing.T) {
	snapshot := discoverySnapshot()
	snapshot.Stories = snapshot.Stories[:2]

	service := testService(snapshot, nil)
	response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{
		Pathway:    searchPathway(),
		PadResults: true,
	})

	require.NoError(t, err)
	assert.Len(t, response.Results, 2)
}

/*
TestService_NoveltyGating checks unusual combinations surface only while
the result set holds fewer than three low-relevance matches, and that
rarely matched and structurally missing elements are always reported.
*/
func TestService_NoveltyGating(t *testing.T) {
	service := testService(discoverySnapshot(), nil)

	// Four non-matching stories score below the low-relevance bar, so the
	// combination heuristic stays quiet.
	response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{Pathway: searchPathway()})
	require.NoError(t, err)
	assert.Empty(t, response.Novelty.UnusualCombinations)

	// Filtering the low scorers away reopens the gate.
	response, err = service.PerformSearch(context.Background(), 1, discovery.SearchRequest{
		Pathway: searchPathway(),
		Filters: ranking.Filters{MinScore: pointer.To(30.0)},
	})
	require.NoError(t, err)
	require.Len(t, response.Novelty.UnusualCombinations, 1)
	assert.Equal(t, discovery.Combination{First: "time-travel", Second: "harry/hermione"}, response.Novelty.UnusualCombinations[0])

	// time-travel matches two stories; harry/hermione only one.
	assert.Equal(t, []string{"harry/hermione"}, response.Novelty.RareElements)

	// The pathway has a relationship anchor but no genre and no plot block.
	require.Len(t, response.Novelty.MissingElements, 2)
	assert.Contains(t, response.Novelty.MissingElements[0], "genre")
	assert.Contains(t, response.Novelty.MissingElements[1], "plot block")
}

/*
TestService_PromptAndDerivedFilters checks the generated prompt names the
fandom and selections, and the derived filters split names by item type.
*/
func TestService_PromptAndDerivedFilters(t *testing.T) {
	items := append(searchPathway(), pathway.Item{
		ID: "c", Type: pathway.ItemPlotBlock, Name: "Goblin Inheritance", Category: "inheritance", Position: 2,
	})

	service := testService(discoverySnapshot(), nil)
	response, err := service.PerformSearch(context.Background(), 1, discovery.SearchRequest{Pathway: items})

	require.NoError(t, err)
	assert.Contains(t, response.Prompt, "Write a Harry Potter story")
	assert.Contains(t, response.Prompt, "time-travel, harry/hermione")
	assert.Contains(t, response.Prompt, "built around Goblin Inheritance")

	assert.Equal(t, []string{"time-travel", "harry/hermione"}, response.DerivedFilters.Tags)
	assert.Equal(t, []string{"Goblin Inheritance"}, response.DerivedFilters.PlotBlocks)
}

// # GetCompletionSuggestions

/*
TestService_Suggestions proposes tags from categories the pathway does not
cover, sorted by category then name, never re-suggesting selected names.
*/
func TestService_Suggestions(t *testing.T) {
	service := testService(discoverySnapshot(), nil)
	p := &pathway.Pathway{Items: searchPathway()}

	suggestions, err := service.GetCompletionSuggestions(context.Background(), 1, p, 10)
	require.NoError(t, err)

	names := make([]string, 0, len(suggestions))
	for _, tag := range suggestions {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"hermione-granger", "angst", "fluff"}, names)
}

/*
TestService_SuggestionsRespectLimit clamps the limit at one and truncates
past it.
*/
func TestService_SuggestionsRespectLimit(t *testing.T) {
	service := testService(discoverySnapshot(), nil)
	p := &pathway.Pathway{Items: searchPathway()}

	suggestions, err := service.GetCompletionSuggestions(context.Background(), 1, p, 2)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "hermione-granger", suggestions[0].Name)
	assert.Equal(t, "angst", suggestions[1].Name)

	suggestions, err = service.GetCompletionSuggestions(context.Background(), 1, p, 0)
	require.NoError(t, err)
	assert.Len(t, suggestions, 1)
}

/*
TestService_SuggestionsExcludeSelectedNames checks a selected tag is never
suggested even when its pathway item carries no category.
*/
func TestService_SuggestionsExcludeSelectedNames(t *testing.T) {
	service := testService(discoverySnapshot(), nil)
	p := &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "fluff", Position: 0},
	}}

	suggestions, err := service.GetCompletionSuggestions(context.Background(), 1, p, 10)
	require.NoError(t, err)

	for _, tag := range suggestions {
		assert.NotEqual(t, "fluff", tag.Name)
	}
	// The genre category itself stays open because the item carried none.
	names := make([]string, 0, len(suggestions))
	for _, tag := range suggestions {
		names = append(names, tag.Name)
	}
	assert.Contains(t, names, "angst")
}

/*
TestService_SuggestionsInactiveFandom surfaces the missing-fandom
precondition as a 404.
*/
func TestService_SuggestionsInactiveFandom(t *testing.T) {
	snapshot := discoverySnapshot()
	snapshot.Fandom.IsActive = false

	service := testService(snapshot, nil)
	_, err := service.GetCompletionSuggestions(context.Background(), 1, &pathway.Pathway{}, 10)

	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "NOT_FOUND", appError.Code)
}
