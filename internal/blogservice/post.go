package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// postCandidate pairs a post with its blog's access fields so list results
// can be filtered without a second round trip per row.
type postCandidate struct {
	post Post
	blog blogAccess
}

// insertPost writes the post and its tag associations in one transaction. The
// author must be the blog's owner or a co-author at write time; a later
// removal of co-author status does not retroactively invalidate the post.
func (m *BlogModel) insertPost(ctx context.Context, post *Post) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	ok, err := m.isOwnerOrAuthorTx(tx, ctx, post.BlogID, post.AuthorID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if !ok {
		_ = tx.Rollback()
		return ErrNotAuthorized
	}

	query := `
		INSERT INTO posts (blog_id, author_id, title, slug, content, is_private)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, created_at, version`

	args := []any{post.BlogID, post.AuthorID, post.Title, post.Slug, post.Content, post.IsPrivate}

	err = tx.QueryRowContext(ctx, query, args...).Scan(&post.ID, &post.IsActive, &post.CreatedAt, &post.Version)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case UniqueViolationError(err, "posts_slug_key"):
			return ErrDuplicateSlug
		case ForeignKeyError(err, "posts_blog_id_fkey"):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	err = m.setPostTags(tx, ctx, post.ID, post.Tags)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (m *BlogModel) isOwnerOrAuthorTx(tx *sql.Tx, ctx context.Context, blogId, userId int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blogs b WHERE b.id = $1 AND b.owner_id = $2
			UNION ALL
			SELECT 1 FROM blog_authors a WHERE a.blog_id = $1 AND a.user_id = $2
		)`

	var ok bool
	err := tx.QueryRowContext(ctx, query, blogId, userId).Scan(&ok)
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (m *BlogModel) getPostById(ctx context.Context, id int) (*postCandidate, error) {
	query := `
		SELECT p.id, p.blog_id, p.author_id, p.title, p.slug, p.content, p.is_active, p.is_private, p.created_at, p.version,
			b.id, b.owner_id, b.is_active AND p.is_active, b.is_private OR p.is_private
		FROM posts p
		JOIN blogs b ON p.blog_id = b.id
		WHERE p.id = $1`

	var c postCandidate
	err := m.db.QueryRowContext(ctx, query, id).Scan(
		&c.post.ID, &c.post.BlogID, &c.post.AuthorID, &c.post.Title, &c.post.Slug, &c.post.Content, &c.post.IsActive, &c.post.IsPrivate, &c.post.CreatedAt, &c.post.Version,
		&c.blog.id, &c.blog.ownerId, &c.blog.isActive, &c.blog.isPrivate,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	tags, err := m.getPostTags(ctx, c.post.ID)
	if err != nil {
		return nil, err
	}
	c.post.Tags = tags

	return &c, nil
}

// getPosts fetches the candidate set for a list request. Visibility is not
// applied here; the caller filters the candidates per viewer.
func (m *BlogModel) getPosts(ctx context.Context, blogId, limit, offset int) ([]postCandidate, error) {
	query := `
		SELECT p.id, p.blog_id, p.author_id, p.title, p.slug, p.content, p.is_active, p.is_private, p.created_at, p.version,
			b.id, b.owner_id, b.is_active AND p.is_active, b.is_private OR p.is_private
		FROM posts p
		JOIN blogs b ON p.blog_id = b.id
		WHERE ($1 = 0 OR p.blog_id = $1)
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := m.db.QueryContext(ctx, query, blogId, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []postCandidate
	for rows.Next() {
		var c postCandidate
		err := rows.Scan(
			&c.post.ID, &c.post.BlogID, &c.post.AuthorID, &c.post.Title, &c.post.Slug, &c.post.Content, &c.post.IsActive, &c.post.IsPrivate, &c.post.CreatedAt, &c.post.Version,
			&c.blog.id, &c.blog.ownerId, &c.blog.isActive, &c.blog.isPrivate,
		)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

func (m *BlogModel) updatePost(ctx context.Context, post *Post) (string, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}

	var old string
	err = tx.QueryRowContext(ctx, "SELECT content FROM posts WHERE id = $1 FOR UPDATE", post.ID).Scan(&old)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return "", ErrRecordNotFound
		default:
			return "", err
		}
	}

	query := `
		UPDATE posts
		SET title = $1, content = $2, is_private = $3, is_active = $4, version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version`

	args := []any{post.Title, post.Content, post.IsPrivate, post.IsActive, post.ID, post.Version}

	err = tx.QueryRowContext(ctx, query, args...).Scan(&post.Version)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return "", ErrRecordNotFound
		default:
			return "", err
		}
	}

	err = m.setPostTags(tx, ctx, post.ID, post.Tags)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return old, nil
}

// getPostContentsByBlog returns the raw content of every post on the blog,
// used to collect embedded image references before a cascade delete.
func (m *BlogModel) getPostContentsByBlog(ctx context.Context, blogId int) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT content FROM posts WHERE blog_id = $1", blogId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}

	return contents, rows.Err()
}

func (m *BlogModel) deletePost(ctx context.Context, postId int) error {
	query := `
		DELETE FROM posts
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, postId)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return ErrRecordNotFound
		default:
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return nil
}
