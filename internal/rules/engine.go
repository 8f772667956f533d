// Copyright (c) 2026 Plotweave. All rights reserved.

package rules

import (
	"log/slog"
	"sort"

	"github.com/plotweave/plotweave/internal/pathway"
)

// # Evaluation Result

// Finding is one emitted validation item, tagged with its producing rule.
type Finding struct {
	RuleName     string `json:"rule_name"`
	Severity     string `json:"severity,omitempty"`
	Message      string `json:"message"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

// Result is the aggregate outcome of evaluating a pathway against a rule set.
//
// IsValid holds exactly when there are no errors and no blocked
// combinations; warnings and suggestions never block.
type Result struct {
	IsValid             bool      `json:"is_valid"`
	Errors              []Finding `json:"errors"`
	Warnings            []Finding `json:"warnings"`
	Suggestions         []Finding `json:"suggestions"`
	BlockedCombinations []Finding `json:"blocked_combinations"`
}

// # Engine

// Engine evaluates rule sets against pathways.
//
// It is stateless: every call flows Loaded → Evaluating → Aggregated within
// the call itself, so concurrent evaluations are fully independent.
type Engine struct {
	logger *slog.Logger
}

// NewEngine constructs a rule evaluation [Engine].
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

/*
Evaluate matches each active rule against the pathway and aggregates every
fired action into the result buckets.

Description: Rules are evaluated in priority order (higher first; ties keep
their given order), and within a matched rule the actions fire in their
stored order. Identical inputs therefore always produce identical results,
including per-finding rule attribution.

Parameters:
  - ruleSet: []*Rule (active rules plus any compiled tag-class rules)
  - p: *pathway.Pathway

Returns:
  - *Result: Aggregated buckets with IsValid derived from errors/blocks
*/
func (engine *Engine) Evaluate(ruleSet []*Rule, p *pathway.Pathway) *Result {
	ordered := make([]*Rule, len(ruleSet))
	copy(ordered, ruleSet)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	result := &Result{
		Errors:              make([]Finding, 0),
		Warnings:            make([]Finding, 0),
		Suggestions:         make([]Finding, 0),
		BlockedCombinations: make([]Finding, 0),
	}

	for _, rule := range ordered {
		if !rule.IsActive {
			continue
		}
		if !rule.Applies(p) {
			continue
		}
		if !engine.conditionsMatch(rule.Conditions, p) {
			continue
		}
		for _, action := range rule.Actions {
			engine.fire(result, rule, action)
		}
	}

	result.IsValid = len(result.Errors) == 0 && len(result.BlockedCombinations) == 0
	return result
}

// conditionsMatch applies the two-bucket semantics: every AND condition must
// hold individually, and if any OR conditions exist at least one must hold.
// An empty condition list always matches.
func (engine *Engine) conditionsMatch(conditions []Condition, p *pathway.Pathway) bool {
	orSeen := false
	orMatched := false

	for _, condition := range conditions {
		switch condition.Logic() {
		case LogicOr:
			orSeen = true
			if !orMatched && condition.Matches(p) {
				orMatched = true
			}
		default:
			if !condition.Matches(p) {
				return false
			}
		}
	}

	if orSeen && !orMatched {
		return false
	}
	return true
}

// fire routes one action into its result bucket.
func (engine *Engine) fire(result *Result, rule *Rule, action Action) {
	finding := Finding{
		RuleName:     rule.Name,
		Severity:     action.Severity,
		Message:      action.Message,
		SuggestedFix: action.SuggestedFix,
	}

	switch action.Kind {
	case ActionError:
		result.Errors = append(result.Errors, finding)
	case ActionWarning:
		result.Warnings = append(result.Warnings, finding)
	case ActionSuggestion, ActionSuggestAlternative:
		result.Suggestions = append(result.Suggestions, finding)
	case ActionBlock:
		result.BlockedCombinations = append(result.BlockedCombinations, finding)
	default:
		// Unknown kinds were rejected at construction; a stored row that
		// slipped through is dropped rather than miscounted.
		engine.logger.Warn("rule_action_dropped",
			slog.String("rule", rule.Name),
			slog.String("kind", string(action.Kind)),
		)
	}
}
