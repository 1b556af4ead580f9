package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

// TagPathSeparator joins ancestor names when materializing a tag path.
const TagPathSeparator = " > "

// TagRepo persists the tag forest and section links.
type TagRepo struct {
	pool *pgxpool.Pool
}

// NewTagRepo creates a tag repository.
func NewTagRepo(pool *pgxpool.Pool) *TagRepo {
	return &TagRepo{pool: pool}
}

// GetOrCreate returns the tag with the given name, creating it when
// absent.
func (r *TagRepo) GetOrCreate(ctx context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, verr.Validation("tag name must not be empty")
	}

	var t Tag
	err := executor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO tags (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, parent_id`, name).
		Scan(&t.ID, &t.Name, &t.ParentID)
	if err != nil {
		return nil, verr.Database(err)
	}
	return &t, nil
}

// LinkSections attaches a tag to sections, ignoring existing links.
func (r *TagRepo) LinkSections(ctx context.Context, tagID int64, sectionIDs []int64) error {
	if len(sectionIDs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, sid := range sectionIDs {
		batch.Queue(`
			INSERT INTO section_tags (section_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, sid, tagID)
	}
	results := executor(ctx, r.pool).SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range sectionIDs {
		if _, err := results.Exec(); err != nil {
			return verr.Database(err)
		}
	}
	return nil
}

// MoveTo reparents a tag. A move that would make the tag its own ancestor
// is rejected. Passing nil detaches the tag to a root.
func (r *TagRepo) MoveTo(ctx context.Context, tagID int64, newParentID *int64) error {
	ex := executor(ctx, r.pool)

	if newParentID != nil {
		if *newParentID == tagID {
			return verr.Newf(verr.ErrCodeTagCycle, "tag %d cannot be its own parent", tagID)
		}
		// Walk the would-be ancestor chain; finding the tag there means
		// the move closes a cycle.
		var cycles bool
		err := ex.QueryRow(ctx, `
			WITH RECURSIVE ancestors AS (
				SELECT id, parent_id FROM tags WHERE id = $1
				UNION ALL
				SELECT t.id, t.parent_id FROM tags t
				JOIN ancestors a ON t.id = a.parent_id
			)
			SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $2)`,
			*newParentID, tagID).Scan(&cycles)
		if err != nil {
			return verr.Database(err)
		}
		if cycles {
			return verr.Newf(verr.ErrCodeTagCycle,
				"moving tag %d under %d would create a cycle", tagID, *newParentID)
		}
	}

	tag, err := ex.Exec(ctx, `UPDATE tags SET parent_id = $2 WHERE id = $1`, tagID, newParentID)
	if err != nil {
		return verr.Database(err)
	}
	if tag.RowsAffected() == 0 {
		return verr.NotFound("tag", tagID)
	}
	return nil
}

// Path materializes the ancestor path of a tag, root first, joined by
// " > ".
func (r *TagRepo) Path(ctx context.Context, tagID int64) (string, error) {
	rows, err := executor(ctx, r.pool).Query(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id, name, parent_id, 0 AS depth FROM tags WHERE id = $1
			UNION ALL
			SELECT t.id, t.name, t.parent_id, c.depth + 1 FROM tags t
			JOIN chain c ON t.id = c.parent_id
		)
		SELECT name FROM chain ORDER BY depth DESC`, tagID)
	if err != nil {
		return "", verr.Database(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", verr.Database(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return "", verr.Database(err)
	}
	if len(names) == 0 {
		return "", verr.NotFound("tag", tagID)
	}
	return strings.Join(names, TagPathSeparator), nil
}

// GetByID fetches one tag.
func (r *TagRepo) GetByID(ctx context.Context, id int64) (*Tag, error) {
	var t Tag
	err := executor(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, parent_id FROM tags WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.ParentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, verr.NotFound("tag", id)
	}
	if err != nil {
		return nil, verr.Database(err)
	}
	return &t, nil
}

// List returns all tags ordered by name.
func (r *TagRepo) List(ctx context.Context) ([]Tag, error) {
	rows, err := executor(ctx, r.pool).Query(ctx,
		`SELECT id, name, parent_id FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.ParentID); err != nil {
			return nil, verr.Database(err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return tags, nil
}

// Delete removes a tag; children are detached by the parent FK, section
// links go with the cascade.
func (r *TagRepo) Delete(ctx context.Context, id int64) error {
	tag, err := executor(ctx, r.pool).Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return verr.Database(err)
	}
	if tag.RowsAffected() == 0 {
		return verr.NotFound("tag", id)
	}
	return nil
}
