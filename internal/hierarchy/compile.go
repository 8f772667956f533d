// Copyright (c) 2026 Plotweave. All rights reserved.

package hierarchy

import (
	"fmt"
	"strings"

	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/internal/taxonomy"
)

// Priorities for compiled rules. Stored fandom rules usually sit above 100,
// so compiled structural rules evaluate after explicit admin rules.
const (
	compiledErrorPriority      = 90
	compiledWarningPriority    = 60
	compiledSuggestionPriority = 30
)

/*
CompileTagClassRules lowers every tag-class sub-rule and plot-block
constraint in the snapshot into the rule engine's condition language.

Description: Plotweave keeps a single evaluation path: structural taxonomy
constraints are not interpreted by a second bespoke evaluator but compiled
into the same condition/action primitives admin-authored rules use. Each
compiled rule triggers only when a class member (or the owning plot block)
is actually present in the pathway.

Parameters:
  - snapshot: *taxonomy.Snapshot

Returns:
  - []*rules.Rule: Synthetic rules, ready to append to the stored rule set
*/
func CompileTagClassRules(snapshot *taxonomy.Snapshot) []*rules.Rule {
	compiler := &classCompiler{snapshot: snapshot}

	var compiled []*rules.Rule
	for _, class := range snapshot.TagClasses {
		if !class.IsActive {
			continue
		}
		compiled = append(compiled, compiler.compileClass(class)...)
	}
	for _, block := range snapshot.PlotBlocks {
		if !block.IsActive {
			continue
		}
		compiled = append(compiled, compiler.compilePlotBlock(block)...)
	}
	return compiled
}

type classCompiler struct {
	snapshot *taxonomy.Snapshot
}

func (compiler *classCompiler) compileClass(class *taxonomy.TagClass) []*rules.Rule {
	members := compiler.snapshot.ClassMembers(class.ID)
	if len(members) == 0 {
		return nil
	}

	var compiled []*rules.Rule
	sub := class.SubRules

	if sub.MutualExclusion != nil {
		compiled = append(compiled, compiler.compileMutualExclusion(class, members, sub.MutualExclusion)...)
	}
	if sub.RequiredContext != nil {
		compiled = append(compiled, compiler.compileRequiredContext(class, members, sub.RequiredContext)...)
	}
	if sub.InstanceLimits != nil {
		compiled = append(compiled, compiler.compileInstanceLimits(class, members, sub.InstanceLimits)...)
	}
	if sub.CategoryRestrictions != nil {
		compiled = append(compiled, compiler.compileCategoryRestrictions(class, members, sub.CategoryRestrictions)...)
	}
	if sub.Dependencies != nil {
		compiled = append(compiled, compiler.compileDependencies(class, members, sub.Dependencies)...)
	}
	return compiled
}

// memberTriggers builds the OR bucket: the rule only becomes relevant when
// at least one class member is present in the pathway.
func memberTriggers(members []string) []rules.Condition {
	conditions := make([]rules.Condition, 0, len(members))
	for _, member := range members {
		condition, err := rules.NewHasTag(rules.FieldName, rules.OpEquals, member, nil, rules.WithLogic(rules.LogicOr))
		if err != nil {
			continue
		}
		conditions = append(conditions, condition)
	}
	return conditions
}

func (compiler *classCompiler) compileMutualExclusion(class *taxonomy.TagClass, members []string, exclusion *taxonomy.MutualExclusion) []*rules.Rule {
	var compiled []*rules.Rule

	for _, conflicting := range exclusion.ConflictingTags {
		present, err := rules.NewHasTag(rules.FieldName, rules.OpEquals, conflicting, nil)
		if err != nil {
			continue
		}
		conditions := append([]rules.Condition{present}, memberTriggers(members)...)
		compiled = append(compiled, compiledRule(
			class.FandomID,
			fmt.Sprintf("class %s: mutual exclusion", class.Name),
			compiledErrorPriority,
			conditions,
			mustAction(rules.ActionError, "error",
				fmt.Sprintf("Tags in class %q cannot be combined with %q", class.Name, conflicting),
				fmt.Sprintf("Remove %q or the conflicting class tag", conflicting)),
		))
	}

	for _, conflictingClass := range exclusion.ConflictingClasses {
		otherMembers := compiler.membersOfClassNamed(conflictingClass)
		if len(otherMembers) == 0 {
			continue
		}
		// Any (member, other-member) pair co-present fires the rule, which
		// is expressible as an OR bucket of pairwise combinations.
		var conditions []rules.Condition
		for _, member := range members {
			for _, other := range otherMembers {
				pair, err := rules.NewCombination([]string{member, other}, rules.WithLogic(rules.LogicOr))
				if err != nil {
					continue
				}
				conditions = append(conditions, pair)
			}
		}
		if len(conditions) == 0 {
			continue
		}
		compiled = append(compiled, compiledRule(
			class.FandomID,
			fmt.Sprintf("class %s: excludes class %s", class.Name, conflictingClass),
			compiledErrorPriority,
			conditions,
			mustAction(rules.ActionError, "error",
				fmt.Sprintf("Tags from class %q cannot be combined with tags from class %q", class.Name, conflictingClass), ""),
		))
	}

	return compiled
}

func (compiler *classCompiler) compileRequiredContext(class *taxonomy.TagClass, members []string, required *taxonomy.RequiredContext) []*rules.Rule {
	var compiled []*rules.Rule

	if len(required.RequiredTags) > 0 {
		missing, err := rules.NewCombination(required.RequiredTags, rules.WithNegate())
		if err == nil {
			conditions := append([]rules.Condition{missing}, memberTriggers(members)...)
			compiled = append(compiled, compiledRule(
				class.FandomID,
				fmt.Sprintf("class %s: required context", class.Name),
				compiledErrorPriority,
				conditions,
				mustAction(rules.ActionError, "error",
					fmt.Sprintf("Tags in class %q require: %s", class.Name, strings.Join(required.RequiredTags, ", ")),
					fmt.Sprintf("Add the missing tags: %s", strings.Join(required.RequiredTags, ", "))),
			))
		}
	}

	for _, requiredClass := range required.RequiredClasses {
		otherMembers := compiler.membersOfClassNamed(requiredClass)
		if len(otherMembers) == 0 {
			continue
		}
		// Exclusion matches when a listed name is present; negated it
		// matches when the required class has no member selected, which is
		// exactly the violation.
		noneOf, err := rules.NewExclusion(otherMembers, rules.WithNegate())
		if err != nil {
			continue
		}
		conditions := append([]rules.Condition{noneOf}, memberTriggers(members)...)
		compiled = append(compiled, compiledRule(
			class.FandomID,
			fmt.Sprintf("class %s: requires class %s", class.Name, requiredClass),
			compiledErrorPriority,
			conditions,
			mustAction(rules.ActionError, "error",
				fmt.Sprintf("Tags in class %q require at least one tag from class %q", class.Name, requiredClass), ""),
		))
	}

	// RequiredMetadata is not compiled: pathway items carry no metadata in
	// this core, so the constraint belongs to the management collaborator.
	return compiled
}

func (compiler *classCompiler) compileInstanceLimits(class *taxonomy.TagClass, members []string, limits *taxonomy.InstanceLimits) []*rules.Rule {
	var compiled []*rules.Rule

	if limits.Max != nil {
		tooMany, err := rules.NewTagCount(rules.OpGt, *limits.Max, members)
		if err == nil {
			compiled = append(compiled, compiledRule(
				class.FandomID,
				fmt.Sprintf("class %s: max instances", class.Name),
				compiledErrorPriority,
				[]rules.Condition{tooMany},
				mustAction(rules.ActionError, "error",
					fmt.Sprintf("At most %d tags from class %q are allowed", *limits.Max, class.Name), ""),
			))
		}
	}

	if limits.Min != nil {
		tooFew, err := rules.NewTagCount(rules.OpLt, *limits.Min, members)
		if err == nil {
			conditions := append([]rules.Condition{tooFew}, memberTriggers(members)...)
			compiled = append(compiled, compiledRule(
				class.FandomID,
				fmt.Sprintf("class %s: min instances", class.Name),
				compiledErrorPriority,
				conditions,
				mustAction(rules.ActionError, "error",
					fmt.Sprintf("At least %d tags from class %q are required once the class is used", *limits.Min, class.Name), ""),
			))
		}
	}

	if limits.Exact != nil {
		notExact, err := rules.NewTagCount(rules.OpEquals, *limits.Exact, members, rules.WithNegate())
		if err == nil {
			conditions := append([]rules.Condition{notExact}, memberTriggers(members)...)
			compiled = append(compiled, compiledRule(
				class.FandomID,
				fmt.Sprintf("class %s: exact instances", class.Name),
				compiledErrorPriority,
				conditions,
				mustAction(rules.ActionError, "error",
					fmt.Sprintf("Exactly %d tags from class %q are required", *limits.Exact, class.Name), ""),
			))
		}
	}

	return compiled
}

func (compiler *classCompiler) compileCategoryRestrictions(class *taxonomy.TagClass, members []string, restrictions *taxonomy.CategoryRestrictions) []*rules.Rule {
	var compiled []*rules.Rule

	excluded := append([]string{}, restrictions.ExcludedCategories...)

	// An applicable-categories whitelist excludes every other known tag
	// category of the fandom.
	if len(restrictions.ApplicableCategories) > 0 {
		applicable := make(map[string]bool, len(restrictions.ApplicableCategories))
		for _, category := range restrictions.ApplicableCategories {
			applicable[strings.ToLower(category)] = true
		}
		for _, category := range compiler.snapshot.TagCategories() {
			if !applicable[category] {
				excluded = append(excluded, category)
			}
		}
	}

	for _, category := range excluded {
		present, err := rules.NewHasTag(rules.FieldCategory, rules.OpEquals, category, nil)
		if err != nil {
			continue
		}
		conditions := append([]rules.Condition{present}, memberTriggers(members)...)
		compiled = append(compiled, compiledRule(
			class.FandomID,
			fmt.Sprintf("class %s: category restriction", class.Name),
			compiledErrorPriority,
			conditions,
			mustAction(rules.ActionError, "error",
				fmt.Sprintf("Tags in class %q cannot be combined with %q tags", class.Name, category), ""),
		))
	}

	if len(restrictions.RequiredPlotBlocks) > 0 {
		missing, err := rules.NewCombination(restrictions.RequiredPlotBlocks, rules.WithNegate())
		if err == nil {
			conditions := append([]rules.Condition{missing}, memberTriggers(members)...)
			compiled = append(compiled, compiledRule(
				class.FandomID,
				fmt.Sprintf("class %s: required plot blocks", class.Name),
				compiledErrorPriority,
				conditions,
				mustAction(rules.ActionError, "error",
					fmt.Sprintf("Tags in class %q require the plot blocks: %s", class.Name, strings.Join(restrictions.RequiredPlotBlocks, ", ")), ""),
			))
		}
	}

	return compiled
}

func (compiler *classCompiler) compileDependencies(class *taxonomy.TagClass, members []string, dependencies *taxonomy.Dependencies) []*rules.Rule {
	var compiled []*rules.Rule

	if len(dependencies.Requires) > 0 {
		missing, err := rules.NewCombination(dependencies.Requires, rules.WithNegate())
		if err == nil {
			conditions := append([]rules.Condition{missing}, memberTriggers(members)...)
			compiled = append(compiled, compiledRule(
				class.FandomID,
				fmt.Sprintf("class %s: dependencies", class.Name),
				compiledErrorPriority,
				conditions,
				mustAction(rules.ActionError, "error",
					fmt.Sprintf("Tags in class %q require: %s", class.Name, strings.Join(dependencies.Requires, ", ")), ""),
			))
		}
	}

	for _, enhancer := range dependencies.Enhances {
		absent, err := rules.NewHasTag(rules.FieldName, rules.OpEquals, enhancer, nil, rules.WithNegate())
		if err != nil {
			continue
		}
		conditions := append([]rules.Condition{absent}, memberTriggers(members)...)
		compiled = append(compiled, compiledRule(
			class.FandomID,
			fmt.Sprintf("class %s: enhancement", class.Name),
			compiledSuggestionPriority,
			conditions,
			mustAction(rules.ActionSuggestion, "info",
				fmt.Sprintf("Tags in class %q pair well with %q", class.Name, enhancer),
				fmt.Sprintf("Consider adding %q", enhancer)),
		))
	}

	for _, enabled := range dependencies.Enables {
		absent, err := rules.NewHasTag(rules.FieldName, rules.OpEquals, enabled, nil, rules.WithNegate())
		if err != nil {
			continue
		}
		conditions := append([]rules.Condition{absent}, memberTriggers(members)...)
		compiled = append(compiled, compiledRule(
			class.FandomID,
			fmt.Sprintf("class %s: enables", class.Name),
			compiledSuggestionPriority,
			conditions,
			mustAction(rules.ActionSuggestion, "info",
				fmt.Sprintf("Tags in class %q unlock %q", class.Name, enabled),
				fmt.Sprintf("Consider adding %q", enabled)),
		))
	}

	return compiled
}

// # Plot Block Constraints

func (compiler *classCompiler) compilePlotBlock(block *taxonomy.PlotBlock) []*rules.Rule {
	var compiled []*rules.Rule

	trigger := func() rules.Condition {
		condition, _ := rules.NewHasPlotBlock(rules.FieldName, rules.OpEquals, block.Name, nil)
		return condition
	}

	if block.MaxInstances != nil {
		over, err := rules.NewPlotBlockCount(rules.OpGt, *block.MaxInstances, []string{block.Name})
		if err == nil {
			compiled = append(compiled, compiledRule(
				block.FandomID,
				fmt.Sprintf("plot block %s: max instances", block.Name),
				compiledErrorPriority,
				[]rules.Condition{over},
				mustAction(rules.ActionError, "error",
					fmt.Sprintf("Plot block %q may appear at most %d time(s)", block.Name, *block.MaxInstances), ""),
			))
		}
	}

	for _, conflicting := range block.ConflictsWith {
		pair, err := rules.NewCombination([]string{block.Name, conflicting})
		if err != nil {
			continue
		}
		compiled = append(compiled, compiledRule(
			block.FandomID,
			fmt.Sprintf("plot block %s: conflict", block.Name),
			compiledErrorPriority,
			[]rules.Condition{pair},
			mustAction(rules.ActionError, "error",
				fmt.Sprintf("Plot block %q conflicts with %q", block.Name, conflicting), ""),
		))
	}

	if len(block.Requires) > 0 {
		missing, err := rules.NewCombination(block.Requires, rules.WithNegate())
		if err == nil {
			compiled = append(compiled, compiledRule(
				block.FandomID,
				fmt.Sprintf("plot block %s: requirements", block.Name),
				compiledErrorPriority,
				[]rules.Condition{trigger(), missing},
				mustAction(rules.ActionError, "error",
					fmt.Sprintf("Plot block %q requires: %s", block.Name, strings.Join(block.Requires, ", ")),
					fmt.Sprintf("Add the missing elements: %s", strings.Join(block.Requires, ", "))),
			))
		}
	}

	if len(block.SoftRequires) > 0 {
		missing, err := rules.NewCombination(block.SoftRequires, rules.WithNegate())
		if err == nil {
			compiled = append(compiled, compiledRule(
				block.FandomID,
				fmt.Sprintf("plot block %s: soft requirements", block.Name),
				compiledWarningPriority,
				[]rules.Condition{trigger(), missing},
				mustAction(rules.ActionWarning, "warning",
					fmt.Sprintf("Plot block %q usually appears with: %s", block.Name, strings.Join(block.SoftRequires, ", ")), ""),
			))
		}
	}

	if len(block.EnabledBy) > 0 {
		noneOf, err := rules.NewExclusion(block.EnabledBy, rules.WithNegate())
		if err == nil {
			compiled = append(compiled, compiledRule(
				block.FandomID,
				fmt.Sprintf("plot block %s: enablement", block.Name),
				compiledErrorPriority,
				[]rules.Condition{trigger(), noneOf},
				mustAction(rules.ActionError, "error",
					fmt.Sprintf("Plot block %q needs one of: %s", block.Name, strings.Join(block.EnabledBy, ", ")), ""),
			))
		}
	}

	for _, enhancer := range block.Enhances {
		absent, err := rules.NewHasTag(rules.FieldName, rules.OpEquals, enhancer, nil, rules.WithNegate())
		if err != nil {
			continue
		}
		compiled = append(compiled, compiledRule(
			block.FandomID,
			fmt.Sprintf("plot block %s: enhancement", block.Name),
			compiledSuggestionPriority,
			[]rules.Condition{trigger(), absent},
			mustAction(rules.ActionSuggestion, "info",
				fmt.Sprintf("Plot block %q pairs well with %q", block.Name, enhancer),
				fmt.Sprintf("Consider adding %q", enhancer)),
		))
	}

	for _, category := range block.ExcludesCategories {
		present, err := rules.NewHasTag(rules.FieldCategory, rules.OpEquals, category, nil)
		if err != nil {
			continue
		}
		compiled = append(compiled, compiledRule(
			block.FandomID,
			fmt.Sprintf("plot block %s: category exclusion", block.Name),
			compiledErrorPriority,
			[]rules.Condition{trigger(), present},
			mustAction(rules.ActionError, "error",
				fmt.Sprintf("Plot block %q cannot be combined with %q tags", block.Name, category), ""),
		))
	}

	return compiled
}

// # Helpers

func (compiler *classCompiler) membersOfClassNamed(name string) []string {
	for _, class := range compiler.snapshot.TagClasses {
		if class.Name == name {
			return compiler.snapshot.ClassMembers(class.ID)
		}
	}
	return nil
}

func compiledRule(fandomID int64, name string, priority int, conditions []rules.Condition, actions ...rules.Action) *rules.Rule {
	return &rules.Rule{
		FandomID:   fandomID,
		Name:       name,
		Category:   "taxonomy",
		Priority:   priority,
		IsActive:   true,
		Conditions: conditions,
		Actions:    actions,
	}
}

func mustAction(kind rules.ActionKind, severity, message, fix string) rules.Action {
	action, err := rules.NewAction(kind, severity, message, fix)
	if err != nil {
		// Compiled messages are always non-empty; this is unreachable.
		panic(err)
	}
	return action
}
