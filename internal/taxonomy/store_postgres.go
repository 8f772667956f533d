// Copyright (c) 2026 Plotweave. All rights reserved.

package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plotweave/plotweave/internal/platform/database/schema"
	"github.com/plotweave/plotweave/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
//
// All snapshot reads are bulk queries: one per entity kind, with story
// memberships aggregated database-side so a 10k-story fandom loads in a
// handful of round trips rather than thousands.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed taxonomy store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Snapshot implements [Repository].
//
// The five entity reads run inside one repeatable-read transaction, so the
// snapshot observes a single committed state even while an admin edit lands
// mid-call.
func (repository *PostgresRepository) Snapshot(ctx context.Context, fandomID int64, activeOnly bool) (*Snapshot, error) {
	tx, err := repository.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, dberr.Wrap(err, "begin_snapshot_read")
	}
	defer tx.Rollback(ctx)

	fandom, err := repository.getFandomByID(ctx, tx, fandomID)
	if err != nil {
		return nil, err
	}

	tags, err := repository.listTags(ctx, tx, fandomID, activeOnly)
	if err != nil {
		return nil, err
	}

	classes, err := repository.listTagClasses(ctx, tx, fandomID, activeOnly)
	if err != nil {
		return nil, err
	}

	blocks, err := repository.listPlotBlocks(ctx, tx, fandomID, activeOnly)
	if err != nil {
		return nil, err
	}

	stories, err := repository.listStories(ctx, tx, fandomID, activeOnly)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, dberr.Wrap(err, "commit_snapshot_read")
	}

	return &Snapshot{
		Fandom:     fandom,
		Tags:       tags,
		TagClasses: classes,
		PlotBlocks: blocks,
		Stories:    stories,
	}, nil
}

// ListFandoms implements [Repository].
func (repository *PostgresRepository) ListFandoms(ctx context.Context, activeOnly bool) ([]*Fandom, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s FROM %s`,
		schema.CoreFandom.ID, schema.CoreFandom.Name, schema.CoreFandom.Slug,
		schema.CoreFandom.IsActive, schema.CoreFandom.CreatedAt, schema.CoreFandom.UpdatedAt,
		schema.CoreFandom.Table)
	if activeOnly {
		query += fmt.Sprintf(" WHERE %s", schema.CoreFandom.IsActive)
	}
	query += fmt.Sprintf(" ORDER BY %s ASC", schema.CoreFandom.Name)

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_fandoms")
	}
	defer rows.Close()

	fandoms := make([]*Fandom, 0)
	for rows.Next() {
		fandom := &Fandom{}
		if err := rows.Scan(&fandom.ID, &fandom.Name, &fandom.Slug, &fandom.IsActive, &fandom.CreatedAt, &fandom.UpdatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_fandom")
		}
		fandoms = append(fandoms, fandom)
	}
	return fandoms, rows.Err()
}

// GetFandomBySlug implements [Repository].
func (repository *PostgresRepository) GetFandomBySlug(ctx context.Context, slug string) (*Fandom, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s FROM %s WHERE %s = $1`,
		schema.CoreFandom.ID, schema.CoreFandom.Name, schema.CoreFandom.Slug,
		schema.CoreFandom.IsActive, schema.CoreFandom.CreatedAt, schema.CoreFandom.UpdatedAt,
		schema.CoreFandom.Table, schema.CoreFandom.Slug)

	fandom := &Fandom{}
	err := repository.pool.QueryRow(ctx, query, slug).Scan(
		&fandom.ID, &fandom.Name, &fandom.Slug, &fandom.IsActive, &fandom.CreatedAt, &fandom.UpdatedAt)
	if err != nil {
		return nil, dberr.Wrap(err, "get_fandom_by_slug")
	}
	return fandom, nil
}

func (repository *PostgresRepository) getFandomByID(ctx context.Context, tx pgx.Tx, fandomID int64) (*Fandom, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s FROM %s WHERE %s = $1`,
		schema.CoreFandom.ID, schema.CoreFandom.Name, schema.CoreFandom.Slug,
		schema.CoreFandom.IsActive, schema.CoreFandom.CreatedAt, schema.CoreFandom.UpdatedAt,
		schema.CoreFandom.Table, schema.CoreFandom.ID)

	fandom := &Fandom{}
	err := tx.QueryRow(ctx, query, fandomID).Scan(
		&fandom.ID, &fandom.Name, &fandom.Slug, &fandom.IsActive, &fandom.CreatedAt, &fandom.UpdatedAt)
	if err != nil {
		return nil, dberr.Wrap(err, "get_fandom_by_id")
	}
	return fandom, nil
}

func (repository *PostgresRepository) listTags(ctx context.Context, tx pgx.Tx, fandomID int64, activeOnly bool) ([]*Tag, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.CoreTag.ID, schema.CoreTag.FandomID, schema.CoreTag.TagClassID,
		schema.CoreTag.Name, schema.CoreTag.Slug, schema.CoreTag.Category,
		schema.CoreTag.Requires, schema.CoreTag.Enhances, schema.CoreTag.IsActive,
		schema.CoreTag.Table, schema.CoreTag.FandomID)
	if activeOnly {
		query += fmt.Sprintf(" AND %s", schema.CoreTag.IsActive)
	}
	query += fmt.Sprintf(" ORDER BY %s ASC", schema.CoreTag.Name)

	rows, err := tx.Query(ctx, query, fandomID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_tags")
	}
	defer rows.Close()

	tags := make([]*Tag, 0)
	for rows.Next() {
		tag := &Tag{}
		if err := rows.Scan(
			&tag.ID, &tag.FandomID, &tag.TagClassID,
			&tag.Name, &tag.Slug, &tag.Category,
			&tag.Requires, &tag.Enhances, &tag.IsActive,
		); err != nil {
			return nil, dberr.Wrap(err, "scan_tag")
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (repository *PostgresRepository) listTagClasses(ctx context.Context, tx pgx.Tx, fandomID int64, activeOnly bool) ([]*TagClass, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s FROM %s WHERE %s = $1`,
		schema.CoreTagClass.ID, schema.CoreTagClass.FandomID, schema.CoreTagClass.Name,
		schema.CoreTagClass.SubRules, schema.CoreTagClass.IsActive,
		schema.CoreTagClass.Table, schema.CoreTagClass.FandomID)
	if activeOnly {
		query += fmt.Sprintf(" AND %s", schema.CoreTagClass.IsActive)
	}
	query += fmt.Sprintf(" ORDER BY %s ASC", schema.CoreTagClass.Name)

	rows, err := tx.Query(ctx, query, fandomID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_tag_classes")
	}
	defer rows.Close()

	classes := make([]*TagClass, 0)
	for rows.Next() {
		class := &TagClass{}
		var subRulesJSON []byte
		if err := rows.Scan(&class.ID, &class.FandomID, &class.Name, &subRulesJSON, &class.IsActive); err != nil {
			return nil, dberr.Wrap(err, "scan_tag_class")
		}
		if len(subRulesJSON) > 0 {
			if err := json.Unmarshal(subRulesJSON, &class.SubRules); err != nil {
				return nil, dberr.Wrap(err, "decode_tag_class_sub_rules")
			}
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}

func (repository *PostgresRepository) listPlotBlocks(ctx context.Context, tx pgx.Tx, fandomID int64, activeOnly bool) ([]*PlotBlock, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.CorePlotBlock.ID, schema.CorePlotBlock.FandomID, schema.CorePlotBlock.ParentID,
		schema.CorePlotBlock.Name, schema.CorePlotBlock.Category,
		schema.CorePlotBlock.ConflictsWith, schema.CorePlotBlock.Requires,
		schema.CorePlotBlock.SoftRequires, schema.CorePlotBlock.Enhances,
		schema.CorePlotBlock.EnabledBy, schema.CorePlotBlock.ExcludesCategories,
		schema.CorePlotBlock.MaxInstances, schema.CorePlotBlock.IsActive,
		schema.CorePlotBlock.Table, schema.CorePlotBlock.FandomID)
	if activeOnly {
		query += fmt.Sprintf(" AND %s", schema.CorePlotBlock.IsActive)
	}
	query += fmt.Sprintf(" ORDER BY %s ASC", schema.CorePlotBlock.ID)

	rows, err := tx.Query(ctx, query, fandomID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_plot_blocks")
	}
	defer rows.Close()

	blocks := make([]*PlotBlock, 0)
	for rows.Next() {
		block := &PlotBlock{}
		if err := rows.Scan(
			&block.ID, &block.FandomID, &block.ParentID,
			&block.Name, &block.Category,
			&block.ConflictsWith, &block.Requires,
			&block.SoftRequires, &block.Enhances,
			&block.EnabledBy, &block.ExcludesCategories,
			&block.MaxInstances, &block.IsActive,
		); err != nil {
			return nil, dberr.Wrap(err, "scan_plot_block")
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_plot_blocks")
	}

	// Children are derived from the parent pointers rather than stored,
	// so the adjacency can never drift out of sync with the rows.
	byID := make(map[int64]*PlotBlock, len(blocks))
	for _, block := range blocks {
		byID[block.ID] = block
	}
	for _, block := range blocks {
		if block.ParentID == nil {
			continue
		}
		if parent, ok := byID[*block.ParentID]; ok {
			parent.ChildrenIDs = append(parent.ChildrenIDs, block.ID)
		}
	}

	return blocks, nil
}

func (repository *PostgresRepository) listStories(ctx context.Context, tx pgx.Tx, fandomID int64, activeOnly bool) ([]*Story, error) {
	// Memberships are aggregated database-side into int arrays; this is the
	// bulk fetch that keeps the scoring loop free of per-story lookups.
	query := fmt.Sprintf(`
		SELECT
			s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s,
			COALESCE((
				SELECT array_agg(st.%s ORDER BY st.%s)
				FROM %s st WHERE st.%s = s.%s
			), '{}') AS tag_ids,
			COALESCE((
				SELECT array_agg(sp.%s ORDER BY sp.%s)
				FROM %s sp WHERE sp.%s = s.%s
			), '{}') AS plot_block_ids
		FROM %s s
		WHERE s.%s = $1
	`,
		schema.CoreStory.ID, schema.CoreStory.FandomID, schema.CoreStory.Title,
		schema.CoreStory.Summary, schema.CoreStory.WordCount, schema.CoreStory.Status,
		schema.CoreStory.Rating, schema.CoreStory.Kudos, schema.CoreStory.Hits,
		schema.CoreStory.Bookmarks, schema.CoreStory.UpdatedAt, schema.CoreStory.IsActive,
		schema.CoreStoryTag.TagID, schema.CoreStoryTag.TagID,
		schema.CoreStoryTag.Table, schema.CoreStoryTag.StoryID, schema.CoreStory.ID,
		schema.CoreStoryPlotBlock.PlotBlockID, schema.CoreStoryPlotBlock.PlotBlockID,
		schema.CoreStoryPlotBlock.Table, schema.CoreStoryPlotBlock.StoryID, schema.CoreStory.ID,
		schema.CoreStory.Table, schema.CoreStory.FandomID)
	if activeOnly {
		query += fmt.Sprintf(" AND s.%s", schema.CoreStory.IsActive)
	}
	query += fmt.Sprintf(" ORDER BY s.%s ASC", schema.CoreStory.ID)

	rows, err := tx.Query(ctx, query, fandomID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_stories")
	}
	defer rows.Close()

	stories := make([]*Story, 0)
	for rows.Next() {
		story := &Story{}
		if err := rows.Scan(
			&story.ID, &story.FandomID, &story.Title,
			&story.Summary, &story.WordCount, &story.Status,
			&story.Rating, &story.Kudos, &story.Hits,
			&story.Bookmarks, &story.UpdatedAt, &story.IsActive,
			&story.TagIDs, &story.PlotBlockIDs,
		); err != nil {
			return nil, dberr.Wrap(err, "scan_story")
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}
