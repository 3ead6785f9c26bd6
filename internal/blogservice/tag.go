package blogservice

import (
	"context"
	"database/sql"
	"errors"
)

// setPostTags replaces the post's tag set. Tags are auto-created on first
// use; re-creating an existing tag is a no-op.
func (m *BlogModel) setPostTags(tx *sql.Tx, ctx context.Context, postId int, names []string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM post_tags WHERE post_id = $1", postId)
	if err != nil {
		return err
	}

	for _, name := range names {
		var tagId int

		query := `
			INSERT INTO tags (name)
			VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`

		err := tx.QueryRowContext(ctx, query, name).Scan(&tagId)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, "INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", postId, tagId)
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *BlogModel) getPostTags(ctx context.Context, postId int) ([]string, error) {
	query := `
		SELECT t.name
		FROM tags t
		JOIN post_tags pt ON t.id = pt.tag_id
		WHERE pt.post_id = $1
		ORDER BY t.name`

	rows, err := m.db.QueryContext(ctx, query, postId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}

	return tags, rows.Err()
}

func (m *BlogModel) getTagByName(ctx context.Context, name string) (*Tag, error) {
	query := `
		SELECT id, name
		FROM tags
		WHERE name = $1`

	var tag Tag
	err := m.db.QueryRowContext(ctx, query, name).Scan(&tag.ID, &tag.Name)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &tag, nil
}
