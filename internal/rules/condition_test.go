// Copyright (c) 2026 Plotweave. All rights reserved.

package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave/plotweave/internal/pathway"
	"github.com/plotweave/plotweave/internal/rules"
)

func testPathway() *pathway.Pathway {
	return &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "harry/hermione", Category: "relationship", Position: 0},
		{ID: "b", Type: pathway.ItemTag, Name: "time-travel", Category: "plot-device", Position: 1},
		{ID: "c", Type: pathway.ItemTag, Name: "angst", Category: "genre", Position: 2},
		{ID: "d", Type: pathway.ItemPlotBlock, Name: "Goblin Inheritance", Category: "inheritance", Position: 3},
	}}
}

/*
TestCondition_HasTag verifies membership matching across operators.
*/
func TestCondition_HasTag(t *testing.T) {
	testCases := []struct {
		name     string
		field    string
		operator rules.Operator
		target   string
		targets  []string
		want     bool
	}{
		{"equals_match", "name", rules.OpEquals, "time-travel", nil, true},
		{"equals_is_exact", "name", rules.OpEquals, "Time-Travel", nil, false},
		{"equals_ignores_plot_blocks", "name", rules.OpEquals, "Goblin Inheritance", nil, false},
		{"category_equals_is_case_insensitive", "category", rules.OpEquals, "Relationship", nil, true},
		{"contains_substring", "name", rules.OpContains, "TRAVEL", nil, true},
		{"contains_no_match", "name", rules.OpContains, "dragon", nil, false},
		{"in_list", "name", rules.OpIn, "", []string{"fluff", "angst"}, true},
		{"not_in_list", "name", rules.OpNotIn, "", []string{"harry/hermione"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			condition, err := rules.NewHasTag(tc.field, tc.operator, tc.target, tc.targets)
			require.NoError(t, err)
			assert.Equal(t, tc.want, condition.Matches(testPathway()))
		})
	}
}

/*
TestCondition_HasPlotBlock verifies the plot-block variant only inspects
plot-block items.
*/
func TestCondition_HasPlotBlock(t *testing.T) {
	condition, err := rules.NewHasPlotBlock("name", rules.OpEquals, "Goblin Inheritance", nil)
	require.NoError(t, err)
	assert.True(t, condition.Matches(testPathway()))

	condition, err = rules.NewHasPlotBlock("name", rules.OpEquals, "time-travel", nil)
	require.NoError(t, err)
	assert.False(t, condition.Matches(testPathway()))
}

/*
TestCondition_TagCount verifies threshold comparison, including the
restricted name list used by compiled instance limits.
*/
func TestCondition_TagCount(t *testing.T) {
	testCases := []struct {
		name     string
		operator rules.Operator
		count    int
		names    []string
		want     bool
	}{
		{"equals_counts_only_tags", rules.OpEquals, 3, nil, true},
		{"gt_boundary_excluded", rules.OpGt, 3, nil, false},
		{"gt_below", rules.OpGt, 2, nil, true},
		{"lt_above", rules.OpLt, 4, nil, true},
		{"restricted_to_names", rules.OpEquals, 1, []string{"angst", "fluff"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			condition, err := rules.NewTagCount(tc.operator, tc.count, tc.names)
			require.NoError(t, err)
			assert.Equal(t, tc.want, condition.Matches(testPathway()))
		})
	}
}

/*
TestCondition_PlotBlockCount verifies the plot-block counter ignores tag
items entirely.
*/
func TestCondition_PlotBlockCount(t *testing.T) {
	condition, err := rules.NewPlotBlockCount(rules.OpEquals, 1, nil)
	require.NoError(t, err)
	assert.True(t, condition.Matches(testPathway()))

	condition, err = rules.NewPlotBlockCount(rules.OpGt, 1, []string{"Goblin Inheritance"})
	require.NoError(t, err)
	assert.False(t, condition.Matches(testPathway()))
}

/*
TestCondition_CombinationAndExclusion verifies both pattern conditions
match on the triggering pattern: combination on every name present,
exclusion on any forbidden name present.
*/
func TestCondition_CombinationAndExclusion(t *testing.T) {
	combination, err := rules.NewCombination([]string{"time-travel", "Goblin Inheritance"})
	require.NoError(t, err)
	assert.True(t, combination.Matches(testPathway()))

	combination, err = rules.NewCombination([]string{"time-travel", "fluff"})
	require.NoError(t, err)
	assert.False(t, combination.Matches(testPathway()))

	exclusion, err := rules.NewExclusion([]string{"angst"})
	require.NoError(t, err)
	assert.True(t, exclusion.Matches(testPathway()))

	exclusion, err = rules.NewExclusion([]string{"fluff", "harry/ginny"})
	require.NoError(t, err)
	assert.False(t, exclusion.Matches(testPathway()))
}

/*
TestCondition_Options verifies negation and logic bucket assignment.
*/
func TestCondition_Options(t *testing.T) {
	condition, err := rules.NewExclusion([]string{"harry/ginny"}, rules.WithNegate(), rules.WithLogic(rules.LogicOr))
	require.NoError(t, err)

	assert.Equal(t, rules.LogicOr, condition.Logic())
	// harry/ginny is absent, so the negated exclusion matches.
	assert.True(t, condition.Matches(testPathway()))
}

/*
TestCondition_ConstructorValidation verifies malformed specs are rejected.
*/
func TestCondition_ConstructorValidation(t *testing.T) {
	_, err := rules.NewHasTag("name", rules.OpEquals, "", nil)
	assert.Error(t, err, "equals requires a target")

	_, err = rules.NewHasTag("rating", rules.OpEquals, "x", nil)
	assert.Error(t, err, "unknown field")

	_, err = rules.NewHasTag("name", rules.OpIn, "", nil)
	assert.Error(t, err, "in requires a value list")

	_, err = rules.NewCombination(nil)
	assert.Error(t, err, "combination requires names")

	_, err = rules.NewExclusion(nil)
	assert.Error(t, err, "exclusion requires names")
}

/*
TestCondition_FailClosed verifies the substitute for malformed stored rows
never matches anything.
*/
func TestCondition_FailClosed(t *testing.T) {
	condition := rules.FailClosed(rules.LogicAnd)
	assert.False(t, condition.Matches(testPathway()))
	assert.False(t, condition.Matches(&pathway.Pathway{}))
}

/*
TestParseCondition verifies the loose spec dispatch used by the stores.
*/
func TestParseCondition(t *testing.T) {
	condition, err := rules.ParseCondition(rules.ConditionSpec{
		Kind:   "combination",
		Values: []string{"time-travel", "harry/hermione"},
	})
	require.NoError(t, err)
	assert.True(t, condition.Matches(testPathway()))

	condition, err = rules.ParseCondition(rules.ConditionSpec{
		Kind:     "tag_count",
		Operator: "gt",
		Count:    2,
		Logic:    "OR",
	})
	require.NoError(t, err)
	assert.Equal(t, rules.LogicOr, condition.Logic())
	assert.True(t, condition.Matches(testPathway()))

	_, err = rules.ParseCondition(rules.ConditionSpec{Kind: "haunted"})
	assert.Error(t, err)
}
