package schema

// RulesRuleTable represents the 'rules.rule' table
type RulesRuleTable struct {
	Table     string
	ID        string
	FandomID  string
	Name      string
	Category  string
	Priority  string
	AppliesTo string
	IsActive  string
}

// RulesRule is the schema definition for rules.rule
var RulesRule = RulesRuleTable{
	Table:     "rules.rule",
	ID:        "id",
	FandomID:  "fandom_id",
	Name:      "name",
	Category:  "category",
	Priority:  "priority",
	AppliesTo: "applies_to",
	IsActive:  "is_active",
}

func (t RulesRuleTable) Columns() []string {
	return []string{t.ID, t.FandomID, t.Name, t.Category, t.Priority, t.AppliesTo, t.IsActive}
}

// RulesConditionTable represents the 'rules.rule_condition' table.
//
// Conditions are stored as loosely-typed rows (kind + JSONB payload) and
// compiled into closed variants by the rules package at load time.
type RulesConditionTable struct {
	Table     string
	ID        string
	RuleID    string
	Ordinal   string
	Kind      string
	Target    string
	Field     string
	Operator  string
	Value     string
	Logic     string
	GroupID   string
	IsNegated string
}

// RulesCondition is the schema definition for rules.rule_condition
var RulesCondition = RulesConditionTable{
	Table:     "rules.rule_condition",
	ID:        "id",
	RuleID:    "rule_id",
	Ordinal:   "ordinal",
	Kind:      "kind",
	Target:    "target",
	Field:     "field",
	Operator:  "operator",
	Value:     "value",
	Logic:     "logic",
	GroupID:   "group_id",
	IsNegated: "is_negated",
}

// RulesActionTable represents the 'rules.rule_action' table
type RulesActionTable struct {
	Table        string
	ID           string
	RuleID       string
	Ordinal      string
	Kind         string
	Severity     string
	Message      string
	SuggestedFix string
}

// RulesAction is the schema definition for rules.rule_action
var RulesAction = RulesActionTable{
	Table:        "rules.rule_action",
	ID:           "id",
	RuleID:       "rule_id",
	Ordinal:      "ordinal",
	Kind:         "kind",
	Severity:     "severity",
	Message:      "message",
	SuggestedFix: "suggested_fix",
}
