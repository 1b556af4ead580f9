package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

// TopicRepo persists research topics and their section and tag links.
type TopicRepo struct {
	pool *pgxpool.Pool
}

// NewTopicRepo creates a topic repository.
func NewTopicRepo(pool *pgxpool.Pool) *TopicRepo {
	return &TopicRepo{pool: pool}
}

// Create adds a topic with a unique name.
func (r *TopicRepo) Create(ctx context.Context, name, description string) (*Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, verr.Validation("topic name must not be empty")
	}

	var t Topic
	err := executor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO research_topics (name, description) VALUES ($1, $2)
		RETURNING id, name, description, created_at`,
		name, description).
		Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, verr.Database(err)
	}
	return &t, nil
}

// GetByID fetches one topic.
func (r *TopicRepo) GetByID(ctx context.Context, id int64) (*Topic, error) {
	var t Topic
	err := executor(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, description, created_at FROM research_topics WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, verr.NotFound("topic", id)
	}
	if err != nil {
		return nil, verr.Database(err)
	}
	return &t, nil
}

// List returns all topics ordered by name.
func (r *TopicRepo) List(ctx context.Context) ([]Topic, error) {
	rows, err := executor(ctx, r.pool).Query(ctx,
		`SELECT id, name, description, created_at FROM research_topics ORDER BY name ASC`)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			return nil, verr.Database(err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return topics, nil
}

// Update renames a topic or changes its description.
func (r *TopicRepo) Update(ctx context.Context, id int64, name, description string) error {
	tag, err := executor(ctx, r.pool).Exec(ctx, `
		UPDATE research_topics SET name = $2, description = $3 WHERE id = $1`,
		id, name, description)
	if err != nil {
		return verr.Database(err)
	}
	if tag.RowsAffected() == 0 {
		return verr.NotFound("topic", id)
	}
	return nil
}

// Delete removes a topic and its links.
func (r *TopicRepo) Delete(ctx context.Context, id int64) error {
	tag, err := executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM research_topics WHERE id = $1`, id)
	if err != nil {
		return verr.Database(err)
	}
	if tag.RowsAffected() == 0 {
		return verr.NotFound("topic", id)
	}
	return nil
}

// AddDocument links every section of a document to the topic.
func (r *TopicRepo) AddDocument(ctx context.Context, topicID, documentID int64) error {
	_, err := executor(ctx, r.pool).Exec(ctx, `
		INSERT INTO research_topic_sections (topic_id, section_id)
		SELECT $1, s.id FROM sections s WHERE s.document_id = $2
		ON CONFLICT DO NOTHING`, topicID, documentID)
	if err != nil {
		return verr.Database(err)
	}
	return nil
}

// RemoveDocument unlinks a document's sections from the topic.
func (r *TopicRepo) RemoveDocument(ctx context.Context, topicID, documentID int64) error {
	_, err := executor(ctx, r.pool).Exec(ctx, `
		DELETE FROM research_topic_sections rts
		USING sections s
		WHERE rts.topic_id = $1 AND rts.section_id = s.id AND s.document_id = $2`,
		topicID, documentID)
	if err != nil {
		return verr.Database(err)
	}
	return nil
}

// LinkTag attaches a tag to the topic.
func (r *TopicRepo) LinkTag(ctx context.Context, topicID, tagID int64) error {
	_, err := executor(ctx, r.pool).Exec(ctx, `
		INSERT INTO research_topic_tags (topic_id, tag_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, topicID, tagID)
	if err != nil {
		return verr.Database(err)
	}
	return nil
}

// Centroid averages the embeddings of the topic's linked sections,
// giving a query vector for recommendations. Returns nil when the topic
// has no embedded sections.
func (r *TopicRepo) Centroid(ctx context.Context, topicID int64) ([]float32, error) {
	var centroid *pgvector.Vector
	err := executor(ctx, r.pool).QueryRow(ctx, `
		SELECT AVG(e.vector)
		FROM research_topic_sections rts
		JOIN embeddings e ON e.section_id = rts.section_id
		WHERE rts.topic_id = $1`, topicID).
		Scan(&centroid)
	if err != nil {
		return nil, verr.Database(err)
	}
	if centroid == nil {
		return nil, nil
	}
	return centroid.Slice(), nil
}
