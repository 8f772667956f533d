// Copyright (c) 2026 Plotweave. All rights reserved.

package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/plotweave/plotweave/internal/pathway"
)

// # Condition Vocabulary

// Logic assigns a condition to the AND or OR bucket of its rule.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Operator is the comparison applied by membership and count conditions.
type Operator string

const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpGt       Operator = "gt"
	OpLt       Operator = "lt"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
)

// Membership conditions can match on the item name or its category.
const (
	FieldName     = "name"
	FieldCategory = "category"
)

// Condition is one predicate in a rule's condition list.
//
// The concrete variants are closed: every condition reaching an engine was
// either built by a validating constructor or replaced by the fail-closed
// variant at load time.
type Condition interface {
	// Logic reports which bucket (AND/OR) the condition evaluates in.
	Logic() Logic

	// Matches evaluates the condition against a pathway. Implementations
	// never return an error; anything malformed was rejected or replaced
	// before evaluation.
	Matches(p *pathway.Pathway) bool
}

// base carries the fields shared by every variant. The stored groupID is
// retained for round-tripping but the engine evaluates the flat AND/OR
// two-bucket semantics, not nested groups.
type base struct {
	logic   Logic
	groupID string
	negate  bool
}

func (b base) Logic() Logic {
	if b.logic == LogicOr {
		return LogicOr
	}
	return LogicAnd
}

// outcome applies the negation flag to a raw match result.
func (b base) outcome(matched bool) bool {
	if b.negate {
		return !matched
	}
	return matched
}

// # Variants

// membershipCondition implements has_tag and has_plot_block.
type membershipCondition struct {
	base
	itemType pathway.ItemType
	field    string
	operator Operator
	target   string
	targets  []string
}

func (c *membershipCondition) Matches(p *pathway.Pathway) bool {
	matched := false
	for _, item := range p.Items {
		if item.Type != c.itemType {
			continue
		}
		actual := item.Name
		if c.field == FieldCategory {
			actual = item.Category
		}
		if c.valueMatches(actual) {
			matched = true
			break
		}
	}
	return c.outcome(matched)
}

func (c *membershipCondition) valueMatches(actual string) bool {
	switch c.operator {
	case OpEquals:
		if c.field == FieldCategory {
			return strings.EqualFold(actual, c.target)
		}
		return actual == c.target
	case OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(c.target))
	case OpIn:
		return slices.Contains(c.targets, actual)
	case OpNotIn:
		return !slices.Contains(c.targets, actual)
	default:
		return false
	}
}

// countCondition implements tag_count and its plot-block counterpart: the
// number of pathway items of one type compared against a threshold. A
// non-empty name list restricts the count to matching items, which is how
// tag-class and plot-block instance limits compile.
type countCondition struct {
	base
	itemType pathway.ItemType
	operator Operator
	count    int
	names    []string
}

func (c *countCondition) Matches(p *pathway.Pathway) bool {
	n := 0
	for _, item := range p.Items {
		if item.Type != c.itemType {
			continue
		}
		if len(c.names) > 0 && !slices.Contains(c.names, item.Name) {
			continue
		}
		n++
	}

	var matched bool
	switch c.operator {
	case OpEquals:
		matched = n == c.count
	case OpGt:
		matched = n > c.count
	case OpLt:
		matched = n < c.count
	}
	return c.outcome(matched)
}

// combinationCondition matches when every listed name appears among the
// pathway item names, regardless of item type.
type combinationCondition struct {
	base
	names []string
}

func (c *combinationCondition) Matches(p *pathway.Pathway) bool {
	matched := true
	for _, name := range c.names {
		if !p.HasName(name) {
			matched = false
			break
		}
	}
	return c.outcome(matched)
}

// exclusionCondition matches when any of the listed forbidden names appears
// among the pathway item names. Like combination, the condition matches on
// the triggering pattern; the owning rule's action then reports the
// violation of "none of these names may appear".
type exclusionCondition struct {
	base
	names []string
}

func (c *exclusionCondition) Matches(p *pathway.Pathway) bool {
	matched := false
	for _, name := range c.names {
		if p.HasName(name) {
			matched = true
			break
		}
	}
	return c.outcome(matched)
}

// failClosedCondition replaces a malformed stored condition. It never
// matches, so the owning rule silently refuses to fire instead of aborting
// the pathway's validation.
type failClosedCondition struct {
	base
}

func (c *failClosedCondition) Matches(*pathway.Pathway) bool { return false }

// FailClosed returns the condition substituted for malformed stored rows.
func FailClosed(logic Logic) Condition {
	return &failClosedCondition{base: base{logic: logic}}
}

// # Constructors

// Option customizes a condition at construction.
type Option func(*base)

// WithLogic places the condition in the given bucket (default AND).
func WithLogic(logic Logic) Option {
	return func(b *base) { b.logic = logic }
}

// WithNegate inverts the condition's outcome.
func WithNegate() Option {
	return func(b *base) { b.negate = true }
}

// WithGroup records the stored group id. Flat two-bucket semantics ignore
// it during evaluation.
func WithGroup(groupID string) Option {
	return func(b *base) { b.groupID = groupID }
}

func newBase(options []Option) base {
	b := base{logic: LogicAnd}
	for _, option := range options {
		option(&b)
	}
	return b
}

// NewHasTag builds a has_tag membership condition.
//
// The operator decides how the target is compared against each tag item:
// equals (exact name), contains (case-insensitive substring), or in/not_in
// (membership in the targets list).
func NewHasTag(field string, operator Operator, target string, targets []string, options ...Option) (Condition, error) {
	return newMembership(pathway.ItemTag, field, operator, target, targets, options)
}

// NewHasPlotBlock builds a has_plot_block membership condition.
func NewHasPlotBlock(field string, operator Operator, target string, targets []string, options ...Option) (Condition, error) {
	return newMembership(pathway.ItemPlotBlock, field, operator, target, targets, options)
}

func newMembership(itemType pathway.ItemType, field string, operator Operator, target string, targets []string, options []Option) (Condition, error) {
	if field == "" {
		field = FieldName
	}
	if field != FieldName && field != FieldCategory {
		return nil, fmt.Errorf("rules: membership condition has unknown field %q", field)
	}
	if operator == "" {
		operator = OpEquals
	}
	switch operator {
	case OpEquals, OpContains:
		if target == "" {
			return nil, fmt.Errorf("rules: membership condition with operator %q requires a target", operator)
		}
	case OpIn, OpNotIn:
		if len(targets) == 0 {
			return nil, fmt.Errorf("rules: membership condition with operator %q requires a value list", operator)
		}
	default:
		return nil, fmt.Errorf("rules: operator %q is not valid for membership conditions", operator)
	}
	return &membershipCondition{
		base:     newBase(options),
		itemType: itemType,
		field:    field,
		operator: operator,
		target:   target,
		targets:  targets,
	}, nil
}

// NewTagCount builds a tag_count condition. An empty name list counts every
// tag item; a non-empty list restricts the count to the named tags.
func NewTagCount(operator Operator, count int, names []string, options ...Option) (Condition, error) {
	return newCount(pathway.ItemTag, operator, count, names, options)
}

// NewPlotBlockCount builds the plot-block counterpart of tag_count, used by
// compiled plot-block instance limits.
func NewPlotBlockCount(operator Operator, count int, names []string, options ...Option) (Condition, error) {
	return newCount(pathway.ItemPlotBlock, operator, count, names, options)
}

func newCount(itemType pathway.ItemType, operator Operator, count int, names []string, options []Option) (Condition, error) {
	switch operator {
	case OpEquals, OpGt, OpLt:
	default:
		return nil, fmt.Errorf("rules: operator %q is not valid for count conditions", operator)
	}
	if count < 0 {
		return nil, fmt.Errorf("rules: count threshold must be non-negative, got %d", count)
	}
	return &countCondition{
		base:     newBase(options),
		itemType: itemType,
		operator: operator,
		count:    count,
		names:    names,
	}, nil
}

// NewCombination builds a combination condition over the given names.
func NewCombination(names []string, options ...Option) (Condition, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("rules: combination condition requires at least one name")
	}
	return &combinationCondition{base: newBase(options), names: names}, nil
}

// NewExclusion builds an exclusion condition over the given forbidden
// names. The condition matches when any of them is selected.
func NewExclusion(names []string, options ...Option) (Condition, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("rules: exclusion condition requires at least one name")
	}
	return &exclusionCondition{base: newBase(options), names: names}, nil
}

// # Loose Specs

// ConditionSpec is the loosely-typed storage/wire shape of a condition, as
// read from rule rows or seed fixtures. [ParseCondition] turns a spec into
// a validated variant.
type ConditionSpec struct {
	Kind     string   `yaml:"kind"`
	Target   string   `yaml:"target"`
	Field    string   `yaml:"field"`
	Operator string   `yaml:"operator"`
	Values   []string `yaml:"values"`
	Count    int      `yaml:"count"`
	Logic    string   `yaml:"logic"`
	GroupID  string   `yaml:"group_id"`
	Negate   bool     `yaml:"negate"`
}

// ParseCondition validates a loose spec into a closed variant.
func ParseCondition(spec ConditionSpec) (Condition, error) {
	var options []Option
	if strings.EqualFold(spec.Logic, string(LogicOr)) {
		options = append(options, WithLogic(LogicOr))
	}
	if spec.Negate {
		options = append(options, WithNegate())
	}
	if spec.GroupID != "" {
		options = append(options, WithGroup(spec.GroupID))
	}

	switch spec.Kind {
	case "has_tag":
		return NewHasTag(spec.Field, Operator(spec.Operator), spec.Target, spec.Values, options...)
	case "has_plot_block":
		return NewHasPlotBlock(spec.Field, Operator(spec.Operator), spec.Target, spec.Values, options...)
	case "tag_count":
		return NewTagCount(Operator(spec.Operator), spec.Count, spec.Values, options...)
	case "combination":
		return NewCombination(spec.Values, options...)
	case "exclusion":
		return NewExclusion(spec.Values, options...)
	default:
		return nil, fmt.Errorf("rules: unknown condition kind %q", spec.Kind)
	}
}
