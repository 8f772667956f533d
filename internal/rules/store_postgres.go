// Copyright (c) 2026 Plotweave. All rights reserved.

package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plotweave/plotweave/internal/platform/database/schema"
	"github.com/plotweave/plotweave/internal/platform/dberr"
)

// PostgresStore implements [Store] using pgx.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore constructs a PostgreSQL backed rule store.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// ListActiveRules implements [Store].
//
// The three reads run inside one repeatable-read transaction so each rule
// arrives with the exact condition/action lists it was committed with.
func (store *PostgresStore) ListActiveRules(ctx context.Context, fandomID int64) ([]*Rule, error) {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, dberr.Wrap(err, "begin_rule_read")
	}
	defer tx.Rollback(ctx)

	ruleSet, ruleIDs, err := store.listRules(ctx, tx, fandomID)
	if err != nil {
		return nil, err
	}
	if len(ruleSet) == 0 {
		return ruleSet, nil
	}

	if err := store.attachConditions(ctx, tx, ruleSet, ruleIDs); err != nil {
		return nil, err
	}
	if err := store.attachActions(ctx, tx, ruleSet, ruleIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, dberr.Wrap(err, "commit_rule_read")
	}
	return ruleSet, nil
}

func (store *PostgresStore) listRules(ctx context.Context, tx pgx.Tx, fandomID int64) ([]*Rule, []int64, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s
		ORDER BY %s DESC, %s ASC
	`,
		schema.RulesRule.ID, schema.RulesRule.FandomID, schema.RulesRule.Name,
		schema.RulesRule.Category, schema.RulesRule.Priority, schema.RulesRule.AppliesTo,
		schema.RulesRule.IsActive,
		schema.RulesRule.Table,
		schema.RulesRule.FandomID, schema.RulesRule.IsActive,
		schema.RulesRule.Priority, schema.RulesRule.ID)

	rows, err := tx.Query(ctx, query, fandomID)
	if err != nil {
		return nil, nil, dberr.Wrap(err, "list_rules")
	}
	defer rows.Close()

	ruleSet := make([]*Rule, 0)
	ruleIDs := make([]int64, 0)
	for rows.Next() {
		rule := &Rule{}
		if err := rows.Scan(
			&rule.ID, &rule.FandomID, &rule.Name,
			&rule.Category, &rule.Priority, &rule.AppliesTo,
			&rule.IsActive,
		); err != nil {
			return nil, nil, dberr.Wrap(err, "scan_rule")
		}
		ruleSet = append(ruleSet, rule)
		ruleIDs = append(ruleIDs, rule.ID)
	}
	return ruleSet, ruleIDs, rows.Err()
}

func (store *PostgresStore) attachConditions(ctx context.Context, tx pgx.Tx, ruleSet []*Rule, ruleIDs []int64) error {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ANY($1)
		ORDER BY %s ASC, %s ASC
	`,
		schema.RulesCondition.RuleID, schema.RulesCondition.Kind, schema.RulesCondition.Target,
		schema.RulesCondition.Field, schema.RulesCondition.Operator, schema.RulesCondition.Value,
		schema.RulesCondition.Logic, schema.RulesCondition.GroupID, schema.RulesCondition.IsNegated,
		schema.RulesCondition.Table,
		schema.RulesCondition.RuleID,
		schema.RulesCondition.RuleID, schema.RulesCondition.Ordinal)

	rows, err := tx.Query(ctx, query, ruleIDs)
	if err != nil {
		return dberr.Wrap(err, "list_rule_conditions")
	}
	defer rows.Close()

	byID := rulesByID(ruleSet)
	for rows.Next() {
		var (
			ruleID   int64
			spec     ConditionSpec
			rawValue []byte
		)
		if err := rows.Scan(
			&ruleID, &spec.Kind, &spec.Target,
			&spec.Field, &spec.Operator, &rawValue,
			&spec.Logic, &spec.GroupID, &spec.Negate,
		); err != nil {
			return dberr.Wrap(err, "scan_rule_condition")
		}
		decodeConditionValue(rawValue, &spec)

		rule, ok := byID[ruleID]
		if !ok {
			continue
		}

		condition, err := ParseCondition(spec)
		if err != nil {
			// Fail closed: the rule keeps a never-matching condition so it
			// cannot fire, and the rest of the rule set still evaluates.
			store.logger.Warn("rule_condition_malformed",
				slog.Int64("rule_id", ruleID),
				slog.String("kind", spec.Kind),
				slog.Any("error", err),
			)
			condition = FailClosed(Logic(spec.Logic))
		}
		rule.Conditions = append(rule.Conditions, condition)
	}
	return rows.Err()
}

func (store *PostgresStore) attachActions(ctx context.Context, tx pgx.Tx, ruleSet []*Rule, ruleIDs []int64) error {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ANY($1)
		ORDER BY %s ASC, %s ASC
	`,
		schema.RulesAction.RuleID, schema.RulesAction.Kind, schema.RulesAction.Severity,
		schema.RulesAction.Message, schema.RulesAction.SuggestedFix,
		schema.RulesAction.Table,
		schema.RulesAction.RuleID,
		schema.RulesAction.RuleID, schema.RulesAction.Ordinal)

	rows, err := tx.Query(ctx, query, ruleIDs)
	if err != nil {
		return dberr.Wrap(err, "list_rule_actions")
	}
	defer rows.Close()

	byID := rulesByID(ruleSet)
	for rows.Next() {
		var (
			ruleID                       int64
			kind                         string
			severity, message, suggested string
		)
		if err := rows.Scan(&ruleID, &kind, &severity, &message, &suggested); err != nil {
			return dberr.Wrap(err, "scan_rule_action")
		}

		rule, ok := byID[ruleID]
		if !ok {
			continue
		}

		action, err := NewAction(ActionKind(kind), severity, message, suggested)
		if err != nil {
			store.logger.Warn("rule_action_malformed",
				slog.Int64("rule_id", ruleID),
				slog.String("kind", kind),
				slog.Any("error", err),
			)
			continue
		}
		rule.Actions = append(rule.Actions, action)
	}
	return rows.Err()
}

func rulesByID(ruleSet []*Rule) map[int64]*Rule {
	byID := make(map[int64]*Rule, len(ruleSet))
	for _, rule := range ruleSet {
		byID[rule.ID] = rule
	}
	return byID
}

// decodeConditionValue maps the JSONB value column onto the spec: a number
// becomes the tag_count threshold, a string or string list becomes Values.
func decodeConditionValue(raw []byte, spec *ConditionSpec) {
	if len(raw) == 0 {
		return
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return
	}
	switch typed := value.(type) {
	case float64:
		spec.Count = int(typed)
	case string:
		spec.Values = []string{typed}
	case []any:
		for _, entry := range typed {
			if s, ok := entry.(string); ok {
				spec.Values = append(spec.Values, s)
			}
		}
	}
}
