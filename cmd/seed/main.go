// Copyright (c) 2026 Plotweave. All rights reserved.

// Command seed loads the YAML taxonomy fixtures into PostgreSQL.
//
// It is idempotent: every entity is upserted by its natural key
// (fandom slug, or fandom + name), so re-running the seeder after
// editing a fixture converges the database on the fixture state.
//
// Usage:
//
//	DATABASE_URL=... SEED_PATH=./data/seed go run ./cmd/seed
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/plotweave/plotweave/internal/platform/config"
	"github.com/plotweave/plotweave/internal/platform/database/schema"
	"github.com/plotweave/plotweave/internal/platform/migration"
	pgstore "github.com/plotweave/plotweave/internal/platform/postgres"
	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/pkg/slug"
)

// # Fixture Shapes

// fixtureFile is the root document of one YAML seed file.
type fixtureFile struct {
	Fandoms []fandomFixture `yaml:"fandoms"`
}

type fandomFixture struct {
	Name       string             `yaml:"name"`
	Slug       string             `yaml:"slug"`
	TagClasses []tagClassFixture  `yaml:"tag_classes"`
	Tags       []tagFixture       `yaml:"tags"`
	PlotBlocks []plotBlockFixture `yaml:"plot_blocks"`
	Stories    []storyFixture     `yaml:"stories"`
	Rules      []ruleFixture      `yaml:"rules"`
}

type tagClassFixture struct {
	Name     string         `yaml:"name"`
	SubRules map[string]any `yaml:"sub_rules"`
}

type tagFixture struct {
	Name     string   `yaml:"name"`
	Class    string   `yaml:"class"`
	Category string   `yaml:"category"`
	Requires []string `yaml:"requires"`
	Enhances []string `yaml:"enhances"`
}

type plotBlockFixture struct {
	Name               string   `yaml:"name"`
	Parent             string   `yaml:"parent"`
	Category           string   `yaml:"category"`
	ConflictsWith      []string `yaml:"conflicts_with"`
	Requires           []string `yaml:"requires"`
	SoftRequires       []string `yaml:"soft_requires"`
	Enhances           []string `yaml:"enhances"`
	EnabledBy          []string `yaml:"enabled_by"`
	ExcludesCategories []string `yaml:"excludes_categories"`
	MaxInstances       *int     `yaml:"max_instances"`
}

type storyFixture struct {
	Title      string    `yaml:"title"`
	Summary    string    `yaml:"summary"`
	WordCount  int       `yaml:"word_count"`
	Status     string    `yaml:"status"`
	Rating     string    `yaml:"rating"`
	Kudos      int       `yaml:"kudos"`
	Hits       int       `yaml:"hits"`
	Bookmarks  int       `yaml:"bookmarks"`
	UpdatedAt  time.Time `yaml:"updated_at"`
	Tags       []string  `yaml:"tags"`
	PlotBlocks []string  `yaml:"plot_blocks"`
}

type ruleFixture struct {
	Name       string                `yaml:"name"`
	Category   string                `yaml:"category"`
	Priority   int                   `yaml:"priority"`
	AppliesTo  []string              `yaml:"applies_to"`
	Conditions []rules.ConditionSpec `yaml:"conditions"`
	Actions    []actionFixture       `yaml:"actions"`
}

type actionFixture struct {
	Kind         string `yaml:"kind"`
	Message      string `yaml:"message"`
	SuggestedFix string `yaml:"suggested_fix"`
}

// # Entry Point

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("app", "plotweave-seed"))

	cfg, err := config.Load()
	must(log, err, "load configuration")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer pool.Close()

	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	files, err := filepath.Glob(filepath.Join(cfg.SeedPath, "*.yaml"))
	must(log, err, "list seed fixtures")
	if len(files) == 0 {
		log.Warn("no seed fixtures found", slog.String("path", cfg.SeedPath))
		return
	}

	seeder := &seeder{pool: pool, logger: log}
	for _, file := range files {
		must(log, seeder.seedFile(ctx, file), "seed "+filepath.Base(file))
	}

	log.Info("seeding_complete", slog.Int("files", len(files)))
}

func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("seed failure", slog.String("context", context), slog.Any("error", err))
		os.Exit(1)
	}
}

// # Seeder

type seeder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// seedFile loads one fixture file and applies every fandom in it, each
// inside its own transaction.
func (seeder *seeder) seedFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: read %s: %w", path, err)
	}

	file := fixtureFile{}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("seed: decode %s: %w", path, err)
	}

	for _, fandom := range file.Fandoms {
		if err := seeder.seedFandom(ctx, fandom); err != nil {
			return fmt.Errorf("seed: fandom %q: %w", fandom.Name, err)
		}
		seeder.logger.Info("fandom_seeded",
			slog.String("fandom", fandom.Name),
			slog.Int("tags", len(fandom.Tags)),
			slog.Int("plot_blocks", len(fandom.PlotBlocks)),
			slog.Int("stories", len(fandom.Stories)),
			slog.Int("rules", len(fandom.Rules)),
		)
	}
	return nil
}

func (seeder *seeder) seedFandom(ctx context.Context, fixture fandomFixture) error {
	tx, err := seeder.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fandomID, err := seeder.upsertFandom(ctx, tx, fixture)
	if err != nil {
		return err
	}

	classIDs, err := seeder.upsertTagClasses(ctx, tx, fandomID, fixture.TagClasses)
	if err != nil {
		return err
	}

	tagIDs, err := seeder.upsertTags(ctx, tx, fandomID, classIDs, fixture.Tags)
	if err != nil {
		return err
	}

	blockIDs, err := seeder.upsertPlotBlocks(ctx, tx, fandomID, fixture.PlotBlocks)
	if err != nil {
		return err
	}

	if err := seeder.upsertStories(ctx, tx, fandomID, tagIDs, blockIDs, fixture.Stories); err != nil {
		return err
	}

	if err := seeder.upsertRules(ctx, tx, fandomID, fixture.Rules); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (seeder *seeder) upsertFandom(ctx context.Context, tx pgx.Tx, fixture fandomFixture) (int64, error) {
	fandomSlug := fixture.Slug
	if fandomSlug == "" {
		fandomSlug = slug.From(fixture.Name)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s, %s = now()
		RETURNING %s
	`,
		schema.CoreFandom.Table, schema.CoreFandom.Name, schema.CoreFandom.Slug, schema.CoreFandom.IsActive,
		schema.CoreFandom.Slug, schema.CoreFandom.Name, schema.CoreFandom.Name, schema.CoreFandom.UpdatedAt,
		schema.CoreFandom.ID)

	var id int64
	if err := tx.QueryRow(ctx, query, fixture.Name, fandomSlug).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert fandom: %w", err)
	}
	return id, nil
}

func (seeder *seeder) upsertTagClasses(ctx context.Context, tx pgx.Tx, fandomID int64, fixtures []tagClassFixture) (map[string]int64, error) {
	ids := make(map[string]int64, len(fixtures))

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (%s, %s) DO UPDATE SET %s = EXCLUDED.%s, %s = TRUE
		RETURNING %s
	`,
		schema.CoreTagClass.Table, schema.CoreTagClass.FandomID, schema.CoreTagClass.Name,
		schema.CoreTagClass.SubRules, schema.CoreTagClass.IsActive,
		schema.CoreTagClass.FandomID, schema.CoreTagClass.Name,
		schema.CoreTagClass.SubRules, schema.CoreTagClass.SubRules, schema.CoreTagClass.IsActive,
		schema.CoreTagClass.ID)

	for _, fixture := range fixtures {
		subRules, err := json.Marshal(fixture.SubRules)
		if err != nil {
			return nil, fmt.Errorf("marshal sub_rules for class %q: %w", fixture.Name, err)
		}
		var id int64
		if err := tx.QueryRow(ctx, query, fandomID, fixture.Name, subRules).Scan(&id); err != nil {
			return nil, fmt.Errorf("upsert tag class %q: %w", fixture.Name, err)
		}
		ids[fixture.Name] = id
	}
	return ids, nil
}

// upsertTags inserts in two passes: names first, then the requires/enhances
// arrays once every referenced tag has an id.
func (seeder *seeder) upsertTags(ctx context.Context, tx pgx.Tx, fandomID int64, classIDs map[string]int64, fixtures []tagFixture) (map[string]int64, error) {
	ids := make(map[string]int64, len(fixtures))

	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = TRUE
		RETURNING %s
	`,
		schema.CoreTag.Table, schema.CoreTag.FandomID, schema.CoreTag.TagClassID,
		schema.CoreTag.Name, schema.CoreTag.Slug, schema.CoreTag.Category, schema.CoreTag.IsActive,
		schema.CoreTag.FandomID, schema.CoreTag.Name,
		schema.CoreTag.TagClassID, schema.CoreTag.TagClassID,
		schema.CoreTag.Slug, schema.CoreTag.Slug,
		schema.CoreTag.Category, schema.CoreTag.Category,
		schema.CoreTag.IsActive,
		schema.CoreTag.ID)

	for _, fixture := range fixtures {
		var classID *int64
		if fixture.Class != "" {
			id, ok := classIDs[fixture.Class]
			if !ok {
				return nil, fmt.Errorf("tag %q references unknown class %q", fixture.Name, fixture.Class)
			}
			classID = &id
		}
		var id int64
		if err := tx.QueryRow(ctx, insert, fandomID, classID, fixture.Name, slug.From(fixture.Name), fixture.Category).Scan(&id); err != nil {
			return nil, fmt.Errorf("upsert tag %q: %w", fixture.Name, err)
		}
		ids[fixture.Name] = id
	}

	update := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		schema.CoreTag.Table, schema.CoreTag.Requires, schema.CoreTag.Enhances, schema.CoreTag.ID)

	for _, fixture := range fixtures {
		// Dependency lists are stored as names; verify they resolve so a
		// typo in a fixture fails loudly instead of compiling to a rule
		// that can never be satisfied.
		if err := checkNames(ids, fixture.Requires); err != nil {
			return nil, fmt.Errorf("tag %q requires: %w", fixture.Name, err)
		}
		if err := checkNames(ids, fixture.Enhances); err != nil {
			return nil, fmt.Errorf("tag %q enhances: %w", fixture.Name, err)
		}
		if _, err := tx.Exec(ctx, update, ids[fixture.Name], emptyIfNil(fixture.Requires), emptyIfNil(fixture.Enhances)); err != nil {
			return nil, fmt.Errorf("link tag %q: %w", fixture.Name, err)
		}
	}
	return ids, nil
}

// upsertPlotBlocks mirrors the tag two-pass strategy; the second pass also
// resolves the parent reference so fixtures can list blocks in any order.
func (seeder *seeder) upsertPlotBlocks(ctx context.Context, tx pgx.Tx, fandomID int64, fixtures []plotBlockFixture) (map[string]int64, error) {
	ids := make(map[string]int64, len(fixtures))

	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = TRUE
		RETURNING %s
	`,
		schema.CorePlotBlock.Table, schema.CorePlotBlock.FandomID, schema.CorePlotBlock.Name,
		schema.CorePlotBlock.Category, schema.CorePlotBlock.ExcludesCategories,
		schema.CorePlotBlock.MaxInstances, schema.CorePlotBlock.IsActive,
		schema.CorePlotBlock.FandomID, schema.CorePlotBlock.Name,
		schema.CorePlotBlock.Category, schema.CorePlotBlock.Category,
		schema.CorePlotBlock.ExcludesCategories, schema.CorePlotBlock.ExcludesCategories,
		schema.CorePlotBlock.MaxInstances, schema.CorePlotBlock.MaxInstances,
		schema.CorePlotBlock.IsActive,
		schema.CorePlotBlock.ID)

	for _, fixture := range fixtures {
		excludes := fixture.ExcludesCategories
		if excludes == nil {
			excludes = []string{}
		}
		var id int64
		if err := tx.QueryRow(ctx, insert, fandomID, fixture.Name, fixture.Category, excludes, fixture.MaxInstances).Scan(&id); err != nil {
			return nil, fmt.Errorf("upsert plot block %q: %w", fixture.Name, err)
		}
		ids[fixture.Name] = id
	}

	update := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7
		WHERE %s = $1
	`,
		schema.CorePlotBlock.Table, schema.CorePlotBlock.ParentID,
		schema.CorePlotBlock.ConflictsWith, schema.CorePlotBlock.Requires,
		schema.CorePlotBlock.SoftRequires, schema.CorePlotBlock.Enhances,
		schema.CorePlotBlock.EnabledBy, schema.CorePlotBlock.ID)

	for _, fixture := range fixtures {
		var parentID *int64
		if fixture.Parent != "" {
			id, ok := ids[fixture.Parent]
			if !ok {
				return nil, fmt.Errorf("plot block %q references unknown parent %q", fixture.Name, fixture.Parent)
			}
			parentID = &id
		}

		// conflicts_with and enabled_by reference sibling plot blocks;
		// requires, soft_requires, and enhances may name tags too, so only
		// the sibling lists are checked against the block id map.
		if err := checkNames(ids, fixture.ConflictsWith); err != nil {
			return nil, fmt.Errorf("plot block %q conflicts_with: %w", fixture.Name, err)
		}
		if err := checkNames(ids, fixture.EnabledBy); err != nil {
			return nil, fmt.Errorf("plot block %q enabled_by: %w", fixture.Name, err)
		}

		if _, err := tx.Exec(ctx, update, ids[fixture.Name], parentID,
			emptyIfNil(fixture.ConflictsWith), emptyIfNil(fixture.Requires),
			emptyIfNil(fixture.SoftRequires), emptyIfNil(fixture.Enhances),
			emptyIfNil(fixture.EnabledBy)); err != nil {
			return nil, fmt.Errorf("link plot block %q: %w", fixture.Name, err)
		}
	}
	return ids, nil
}

func (seeder *seeder) upsertStories(ctx context.Context, tx pgx.Tx, fandomID int64, tagIDs, blockIDs map[string]int64, fixtures []storyFixture) error {
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		RETURNING %s
	`,
		schema.CoreStory.Table, schema.CoreStory.FandomID, schema.CoreStory.Title,
		schema.CoreStory.Summary, schema.CoreStory.WordCount, schema.CoreStory.Status,
		schema.CoreStory.Rating, schema.CoreStory.Kudos, schema.CoreStory.Hits,
		schema.CoreStory.Bookmarks, schema.CoreStory.UpdatedAt, schema.CoreStory.IsActive,
		schema.CoreStory.ID)

	// Stories carry no natural key, so replace the whole catalogue for the
	// fandom rather than guessing which fixture maps to which row.
	purge := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.CoreStory.Table, schema.CoreStory.FandomID)
	if _, err := tx.Exec(ctx, purge, fandomID); err != nil {
		return fmt.Errorf("purge stories: %w", err)
	}

	tagLink := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`,
		schema.CoreStoryTag.Table, schema.CoreStoryTag.StoryID, schema.CoreStoryTag.TagID)
	blockLink := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`,
		schema.CoreStoryPlotBlock.Table, schema.CoreStoryPlotBlock.StoryID, schema.CoreStoryPlotBlock.PlotBlockID)

	for _, fixture := range fixtures {
		status := fixture.Status
		if status == "" {
			status = "complete"
		}
		rating := fixture.Rating
		if rating == "" {
			rating = "general"
		}
		updatedAt := fixture.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}

		var storyID int64
		if err := tx.QueryRow(ctx, insert, fandomID, fixture.Title, fixture.Summary,
			fixture.WordCount, status, rating, fixture.Kudos, fixture.Hits,
			fixture.Bookmarks, updatedAt).Scan(&storyID); err != nil {
			return fmt.Errorf("insert story %q: %w", fixture.Title, err)
		}

		for _, name := range fixture.Tags {
			tagID, ok := tagIDs[name]
			if !ok {
				return fmt.Errorf("story %q references unknown tag %q", fixture.Title, name)
			}
			if _, err := tx.Exec(ctx, tagLink, storyID, tagID); err != nil {
				return fmt.Errorf("link story %q tag %q: %w", fixture.Title, name, err)
			}
		}
		for _, name := range fixture.PlotBlocks {
			blockID, ok := blockIDs[name]
			if !ok {
				return fmt.Errorf("story %q references unknown plot block %q", fixture.Title, name)
			}
			if _, err := tx.Exec(ctx, blockLink, storyID, blockID); err != nil {
				return fmt.Errorf("link story %q plot block %q: %w", fixture.Title, name, err)
			}
		}
	}
	return nil
}

func (seeder *seeder) upsertRules(ctx context.Context, tx pgx.Tx, fandomID int64, fixtures []ruleFixture) error {
	upsert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = TRUE
		RETURNING %s
	`,
		schema.RulesRule.Table, schema.RulesRule.FandomID, schema.RulesRule.Name,
		schema.RulesRule.Category, schema.RulesRule.Priority, schema.RulesRule.AppliesTo,
		schema.RulesRule.FandomID, schema.RulesRule.Name,
		schema.RulesRule.Category, schema.RulesRule.Category,
		schema.RulesRule.Priority, schema.RulesRule.Priority,
		schema.RulesRule.AppliesTo, schema.RulesRule.AppliesTo,
		schema.RulesRule.IsActive,
		schema.RulesRule.ID)

	purgeConditions := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.RulesCondition.Table, schema.RulesCondition.RuleID)
	purgeActions := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.RulesAction.Table, schema.RulesAction.RuleID)

	insertCondition := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		schema.RulesCondition.Table, schema.RulesCondition.RuleID, schema.RulesCondition.Ordinal,
		schema.RulesCondition.Kind, schema.RulesCondition.Target, schema.RulesCondition.Field,
		schema.RulesCondition.Operator, schema.RulesCondition.Value, schema.RulesCondition.Logic,
		schema.RulesCondition.GroupID, schema.RulesCondition.IsNegated)

	insertAction := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
	`,
		schema.RulesAction.Table, schema.RulesAction.RuleID, schema.RulesAction.Ordinal,
		schema.RulesAction.Kind, schema.RulesAction.Message, schema.RulesAction.SuggestedFix)

	for _, fixture := range fixtures {
		// Reject broken fixtures before they reach the database; the rule
		// loader would otherwise degrade them to fail-closed conditions.
		for _, spec := range fixture.Conditions {
			if _, err := rules.ParseCondition(spec); err != nil {
				return fmt.Errorf("rule %q: %w", fixture.Name, err)
			}
		}

		appliesTo := fixture.AppliesTo
		if appliesTo == nil {
			appliesTo = []string{}
		}

		var ruleID int64
		if err := tx.QueryRow(ctx, upsert, fandomID, fixture.Name, fixture.Category,
			fixture.Priority, appliesTo).Scan(&ruleID); err != nil {
			return fmt.Errorf("upsert rule %q: %w", fixture.Name, err)
		}

		if _, err := tx.Exec(ctx, purgeConditions, ruleID); err != nil {
			return fmt.Errorf("purge conditions for rule %q: %w", fixture.Name, err)
		}
		if _, err := tx.Exec(ctx, purgeActions, ruleID); err != nil {
			return fmt.Errorf("purge actions for rule %q: %w", fixture.Name, err)
		}

		for ordinal, spec := range fixture.Conditions {
			value, err := encodeConditionValue(spec)
			if err != nil {
				return fmt.Errorf("rule %q condition %d: %w", fixture.Name, ordinal, err)
			}
			field := spec.Field
			if field == "" {
				field = "name"
			}
			operator := spec.Operator
			if operator == "" {
				operator = "equals"
			}
			logic := spec.Logic
			if logic == "" {
				logic = "AND"
			}
			if _, err := tx.Exec(ctx, insertCondition, ruleID, ordinal,
				spec.Kind, spec.Target, field, operator, value, logic,
				spec.GroupID, spec.Negate); err != nil {
				return fmt.Errorf("insert condition for rule %q: %w", fixture.Name, err)
			}
		}

		for ordinal, action := range fixture.Actions {
			if _, err := tx.Exec(ctx, insertAction, ruleID, ordinal,
				action.Kind, action.Message, action.SuggestedFix); err != nil {
				return fmt.Errorf("insert action for rule %q: %w", fixture.Name, err)
			}
		}
	}
	return nil
}

// # Helpers

// encodeConditionValue packs the variant payload into the JSONB value
// column: a number for tag_count, a string list for everything else.
func encodeConditionValue(spec rules.ConditionSpec) ([]byte, error) {
	if spec.Kind == "tag_count" {
		return json.Marshal(spec.Count)
	}
	return json.Marshal(spec.Values)
}

func checkNames(ids map[string]int64, names []string) error {
	for _, name := range names {
		if _, ok := ids[name]; !ok {
			return fmt.Errorf("unknown reference %q", name)
		}
	}
	return nil
}

func emptyIfNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
