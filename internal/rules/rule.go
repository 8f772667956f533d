// Copyright (c) 2026 Plotweave. All rights reserved.

/*
Package rules implements the fandom rule layer: a small condition/action
language, the stateless engine that evaluates a pathway against a fandom's
active rules, and the store that loads rule rows from PostgreSQL.

A rule is a priority-ordered condition→action unit. Conditions are modeled
as closed variants validated at construction; malformed stored rows degrade
to a fail-closed condition that never matches, so one bad rule can never
abort validation of an otherwise valid pathway.
*/
package rules

import (
	"fmt"
	"strings"

	"github.com/plotweave/plotweave/internal/pathway"
)

// # Actions

// ActionKind enumerates what a fired rule emits.
type ActionKind string

const (
	ActionError              ActionKind = "error"
	ActionWarning            ActionKind = "warning"
	ActionSuggestion         ActionKind = "suggestion"
	ActionSuggestAlternative ActionKind = "suggest_alternative"
	ActionBlock              ActionKind = "block"
)

// Action is one outcome a matched rule fires into the result.
type Action struct {
	Kind         ActionKind `json:"kind"`
	Severity     string     `json:"severity,omitempty"`
	Message      string     `json:"message"`
	SuggestedFix string     `json:"suggested_fix,omitempty"`
}

// NewAction validates and constructs an [Action].
func NewAction(kind ActionKind, severity, message, suggestedFix string) (Action, error) {
	switch kind {
	case ActionError, ActionWarning, ActionSuggestion, ActionSuggestAlternative, ActionBlock:
	default:
		return Action{}, fmt.Errorf("rules: unknown action kind %q", kind)
	}
	if strings.TrimSpace(message) == "" {
		return Action{}, fmt.Errorf("rules: action %q is missing a message", kind)
	}
	return Action{Kind: kind, Severity: severity, Message: message, SuggestedFix: suggestedFix}, nil
}

// # Rules

// Rule is a fandom-scoped, priority-ordered condition→action unit.
type Rule struct {
	ID       int64
	FandomID int64
	Name     string
	Category string

	// Priority orders evaluation; higher values evaluate first.
	Priority int

	// AppliesTo optionally restricts the rule to pathways containing an
	// item whose type, category, or name appears in the list. Empty means
	// the rule applies to every pathway.
	AppliesTo []string

	Conditions []Condition
	Actions    []Action

	IsActive bool
}

// Applies reports whether the rule is relevant to the pathway.
func (rule *Rule) Applies(p *pathway.Pathway) bool {
	if len(rule.AppliesTo) == 0 {
		return true
	}
	for _, entry := range rule.AppliesTo {
		for _, item := range p.Items {
			if string(item.Type) == entry || item.Name == entry || strings.EqualFold(item.Category, entry) {
				return true
			}
		}
	}
	return false
}
