// Copyright (c) 2026 Plotweave. All rights reserved.

package rules_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave/plotweave/internal/pathway"
	"github.com/plotweave/plotweave/internal/rules"
)

func testEngine() *rules.Engine {
	return rules.NewEngine(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

func mustCombination(t *testing.T, names ...string) rules.Condition {
	t.Helper()
	condition, err := rules.NewCombination(names)
	require.NoError(t, err)
	return condition
}

func mustHasTag(t *testing.T, name string, options ...rules.Option) rules.Condition {
	t.Helper()
	condition, err := rules.NewHasTag(rules.FieldName, rules.OpEquals, name, nil, options...)
	require.NoError(t, err)
	return condition
}

func mustTagCount(t *testing.T, operator rules.Operator, count int) rules.Condition {
	t.Helper()
	condition, err := rules.NewTagCount(operator, count, nil)
	require.NoError(t, err)
	return condition
}

func mustAction(t *testing.T, kind rules.ActionKind, message, fix string) rules.Action {
	t.Helper()
	action, err := rules.NewAction(kind, string(kind), message, fix)
	require.NoError(t, err)
	return action
}

/*
TestEngine_SuggestionDoesNotFireWhenCombinationIncomplete verifies a
combination condition over two names stays silent when only one is present.
*/
func TestEngine_SuggestionDoesNotFireWhenCombinationIncomplete(t *testing.T) {
	rule := &rules.Rule{
		Name:     "time-travel-pairing-suggestion",
		Priority: 40,
		IsActive: true,
		Conditions: []rules.Condition{
			mustCombination(t, "time-travel", "harry/hermione"),
		},
		Actions: []rules.Action{
			mustAction(t, rules.ActionSuggestion, "Consider adding angst.", "Add the angst tag."),
		},
	}

	p := &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "time-travel", Category: "plot-device"},
	}}

	result := testEngine().Evaluate([]*rules.Rule{rule}, p)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Suggestions)

	// Complete the combination and the suggestion fires.
	p.Items = append(p.Items, pathway.Item{ID: "b", Type: pathway.ItemTag, Name: "harry/hermione", Category: "relationship"})
	result = testEngine().Evaluate([]*rules.Rule{rule}, p)

	assert.True(t, result.IsValid, "suggestions never invalidate")
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "time-travel-pairing-suggestion", result.Suggestions[0].RuleName)
}

/*
TestEngine_BlockInvalidatesPathway verifies an exclusion rule built through
the stored-rule path fires its block action when the forbidden tag is
selected, and that AppliesTo gates the rule by item type.
*/
func TestEngine_BlockInvalidatesPathway(t *testing.T) {
	condition, err := rules.ParseCondition(rules.ConditionSpec{
		Kind:   "exclusion",
		Values: []string{"harry/ginny"},
	})
	require.NoError(t, err)

	rule := &rules.Rule{
		Name:       "ginny-free-zone",
		Priority:   80,
		AppliesTo:  []string{"tag"},
		IsActive:   true,
		Conditions: []rules.Condition{condition},
		Actions: []rules.Action{
			mustAction(t, rules.ActionBlock, "harry/ginny is not accepted here.", ""),
		},
	}

	blocked := &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "harry/ginny", Category: "relationship"},
	}}
	result := testEngine().Evaluate([]*rules.Rule{rule}, blocked)

	assert.False(t, result.IsValid)
	require.Len(t, result.BlockedCombinations, 1)
	assert.Equal(t, "ginny-free-zone", result.BlockedCombinations[0].RuleName)

	// Without the forbidden tag the rule stays silent.
	clean := &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "harry/luna", Category: "relationship"},
	}}
	result = testEngine().Evaluate([]*rules.Rule{rule}, clean)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.BlockedCombinations)

	// A pathway of only plot blocks never trips the tag-scoped rule.
	unrelated := &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemPlotBlock, Name: "Goblin Inheritance", Category: "inheritance"},
	}}
	result = testEngine().Evaluate([]*rules.Rule{rule}, unrelated)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.BlockedCombinations)
}

/*
TestEngine_TwoBucketSemantics verifies AND conditions must all hold while
the OR bucket needs a single match.
*/
func TestEngine_TwoBucketSemantics(t *testing.T) {
	rule := &rules.Rule{
		Name:     "angsty-shipping",
		IsActive: true,
		Conditions: []rules.Condition{
			mustHasTag(t, "angst"),
			mustHasTag(t, "harry/hermione", rules.WithLogic(rules.LogicOr)),
			mustHasTag(t, "harry/luna", rules.WithLogic(rules.LogicOr)),
		},
		Actions: []rules.Action{
			mustAction(t, rules.ActionWarning, "Angst shipping detected.", ""),
		},
	}

	testCases := []struct {
		name  string
		items []string
		fires bool
	}{
		{"and_and_one_or", []string{"angst", "harry/luna"}, true},
		{"and_without_any_or", []string{"angst"}, false},
		{"or_without_and", []string{"harry/hermione"}, false},
		{"both_or_matches", []string{"angst", "harry/hermione", "harry/luna"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &pathway.Pathway{}
			for i, name := range tc.items {
				p.Items = append(p.Items, pathway.Item{Type: pathway.ItemTag, Name: name, Position: i})
			}
			result := testEngine().Evaluate([]*rules.Rule{rule}, p)
			assert.Equal(t, tc.fires, len(result.Warnings) == 1)
		})
	}
}

/*
TestEngine_EmptyConditionsAlwaysMatch verifies a rule with no conditions
fires on every applicable pathway.
*/
func TestEngine_EmptyConditionsAlwaysMatch(t *testing.T) {
	rule := &rules.Rule{
		Name:     "house-notice",
		IsActive: true,
		Actions: []rules.Action{
			mustAction(t, rules.ActionSuggestion, "Browse the collection guidelines.", ""),
		},
	}

	result := testEngine().Evaluate([]*rules.Rule{rule}, &pathway.Pathway{Items: []pathway.Item{
		{Type: pathway.ItemTag, Name: "fluff"},
	}})

	assert.Len(t, result.Suggestions, 1)
}

/*
TestEngine_PriorityOrdersFindings verifies higher priority rules report
first and that ties keep their given order.
*/
func TestEngine_PriorityOrdersFindings(t *testing.T) {
	makeRule := func(name string, priority int) *rules.Rule {
		return &rules.Rule{
			Name:     name,
			Priority: priority,
			IsActive: true,
			Actions: []rules.Action{
				mustAction(t, rules.ActionWarning, name, ""),
			},
		}
	}

	ruleSet := []*rules.Rule{
		makeRule("low", 10),
		makeRule("tie-first", 50),
		makeRule("tie-second", 50),
		makeRule("high", 90),
	}

	result := testEngine().Evaluate(ruleSet, &pathway.Pathway{Items: []pathway.Item{
		{Type: pathway.ItemTag, Name: "angst"},
	}})

	require.Len(t, result.Warnings, 4)
	assert.Equal(t, "high", result.Warnings[0].RuleName)
	assert.Equal(t, "tie-first", result.Warnings[1].RuleName)
	assert.Equal(t, "tie-second", result.Warnings[2].RuleName)
	assert.Equal(t, "low", result.Warnings[3].RuleName)
}

/*
TestEngine_Deterministic verifies repeated evaluation of the same inputs
produces identical results.
*/
func TestEngine_Deterministic(t *testing.T) {
	ruleSet := []*rules.Rule{
		{
			Name:     "exclusive-ships",
			Priority: 70,
			IsActive: true,
			Conditions: []rules.Condition{
				mustCombination(t, "harry/hermione", "harry/ginny"),
			},
			Actions: []rules.Action{
				mustAction(t, rules.ActionError, "Pick one Harry ship.", "Remove one of the pairing tags."),
			},
		},
		{
			Name:     "crowded-pathway",
			Priority: 20,
			IsActive: true,
			Conditions: []rules.Condition{
				mustTagCount(t, rules.OpGt, 1),
			},
			Actions: []rules.Action{
				mustAction(t, rules.ActionWarning, "Several tags selected.", ""),
			},
		},
	}

	p := &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "harry/hermione", Position: 0},
		{ID: "b", Type: pathway.ItemTag, Name: "harry/ginny", Position: 1},
	}}

	engine := testEngine()
	first := engine.Evaluate(ruleSet, p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Evaluate(ruleSet, p))
	}

	assert.False(t, first.IsValid)
	require.Len(t, first.Errors, 1)
	assert.Equal(t, "Remove one of the pairing tags.", first.Errors[0].SuggestedFix)
}

/*
TestEngine_InactiveRulesSkipped verifies deactivated rules never fire.
*/
func TestEngine_InactiveRulesSkipped(t *testing.T) {
	rule := &rules.Rule{
		Name: "dormant",
		Actions: []rules.Action{
			mustAction(t, rules.ActionError, "Should never appear.", ""),
		},
	}

	result := testEngine().Evaluate([]*rules.Rule{rule}, &pathway.Pathway{Items: []pathway.Item{
		{Type: pathway.ItemTag, Name: "fluff"},
	}})

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

/*
TestEngine_FailClosedRuleStaysSilent verifies a rule carrying a fail-closed
condition cannot fire but does not abort evaluation of other rules.
*/
func TestEngine_FailClosedRuleStaysSilent(t *testing.T) {
	ruleSet := []*rules.Rule{
		{
			Name:       "corrupted",
			Priority:   99,
			IsActive:   true,
			Conditions: []rules.Condition{rules.FailClosed(rules.LogicAnd)},
			Actions: []rules.Action{
				mustAction(t, rules.ActionError, "Should never appear.", ""),
			},
		},
		{
			Name:     "healthy",
			Priority: 10,
			IsActive: true,
			Actions: []rules.Action{
				mustAction(t, rules.ActionWarning, "Still evaluated.", ""),
			},
		},
	}

	result := testEngine().Evaluate(ruleSet, &pathway.Pathway{Items: []pathway.Item{
		{Type: pathway.ItemTag, Name: "angst"},
	}})

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Warnings, 1)
}
