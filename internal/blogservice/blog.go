package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUserForeignKey = errors.New("user_id does not exist")
	ErrDuplicateSlug  = errors.New("duplicate slug")
	ErrNotAuthorized  = errors.New("not authorized")
)

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

// ForeignKeyError is a helper function to check if the error is a foreign key constraint error.
func ForeignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23503" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

// UniqueViolationError is a helper function to check if the error is a unique constraint error.
func UniqueViolationError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

func (m *BlogModel) insertBlog(ctx context.Context, blog *Blog) error {
	query := `
		INSERT INTO blogs (owner_id, title, slug, description, logo, is_private)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, created_at, version`

	args := []any{blog.OwnerID, blog.Title, blog.Slug, blog.Description, blog.Logo, blog.IsPrivate}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&blog.ID, &blog.IsActive, &blog.CreatedAt, &blog.Version)
	if err != nil {
		switch {
		case ForeignKeyError(err, "blogs_owner_id_fkey"):
			return ErrUserForeignKey
		case UniqueViolationError(err, "blogs_slug_key"):
			return ErrDuplicateSlug
		default:
			return err
		}
	}

	return nil
}

func (m *BlogModel) getBlogById(ctx context.Context, id int) (*Blog, error) {
	query := `
		SELECT b.id, b.owner_id, b.title, b.slug, b.description, b.logo, b.is_active, b.is_private, b.created_at, b.version,
			(SELECT COUNT(*) FROM posts p WHERE p.blog_id = b.id) AS posts_count
		FROM blogs b
		WHERE b.id = $1`

	var blog Blog
	err := m.db.QueryRowContext(ctx, query, id).Scan(&blog.ID, &blog.OwnerID, &blog.Title, &blog.Slug, &blog.Description, &blog.Logo, &blog.IsActive, &blog.IsPrivate, &blog.CreatedAt, &blog.Version, &blog.PostsCount)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	authors, err := m.getBlogAuthors(ctx, blog.ID)
	if err != nil {
		return nil, err
	}
	blog.Authors = authors

	return &blog, nil
}

// getBlogs lists blogs matching the search term against title and description.
// An empty search term matches everything.
func (m *BlogModel) getBlogs(ctx context.Context, search string, limit, offset int) ([]Blog, error) {
	query := `
		SELECT b.id, b.owner_id, b.title, b.slug, b.description, b.logo, b.is_active, b.is_private, b.created_at, b.version,
			(SELECT COUNT(*) FROM posts p WHERE p.blog_id = b.id) AS posts_count
		FROM blogs b
		WHERE ($1 = '' OR b.title ILIKE '%' || $1 || '%' OR b.description ILIKE '%' || $1 || '%')
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := m.db.QueryContext(ctx, query, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blogs []Blog
	for rows.Next() {
		var blog Blog
		err := rows.Scan(&blog.ID, &blog.OwnerID, &blog.Title, &blog.Slug, &blog.Description, &blog.Logo, &blog.IsActive, &blog.IsPrivate, &blog.CreatedAt, &blog.Version, &blog.PostsCount)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, blog)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

func (m *BlogModel) updateBlog(ctx context.Context, blog *Blog) error {
	query := `
		UPDATE blogs
		SET title = $1, description = $2, is_private = $3, is_active = $4, version = version + 1
		WHERE id = $5 AND version = $6 AND owner_id = $7
		RETURNING version`

	args := []any{blog.Title, blog.Description, blog.IsPrivate, blog.IsActive, blog.ID, blog.Version, blog.OwnerID}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&blog.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

// updateBlogLogo swaps the stored logo reference and returns the old one so
// the caller can clean up the blob store.
func (m *BlogModel) updateBlogLogo(ctx context.Context, blogId, ownerId int, logo string) (string, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}

	var old string
	err = tx.QueryRowContext(ctx, "SELECT logo FROM blogs WHERE id = $1 AND owner_id = $2 FOR UPDATE", blogId, ownerId).Scan(&old)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return "", ErrRecordNotFound
		default:
			return "", err
		}
	}

	_, err = tx.ExecContext(ctx, "UPDATE blogs SET logo = $1, version = version + 1 WHERE id = $2", logo, blogId)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return old, nil
}

// deleteBlog removes the blog row. Posts, comments, subscribers and requests
// go with it through the ON DELETE CASCADE constraints.
func (m *BlogModel) deleteBlog(ctx context.Context, blogId, ownerId int) error {
	query := `
		DELETE FROM blogs
		WHERE id = $1 AND owner_id = $2`

	res, err := m.db.ExecContext(ctx, query, blogId, ownerId)
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

func (m *BlogModel) getBlogAuthors(ctx context.Context, blogId int) ([]int, error) {
	query := `
		SELECT user_id
		FROM blog_authors
		WHERE blog_id = $1
		ORDER BY added_at`

	rows, err := m.db.QueryContext(ctx, query, blogId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		authors = append(authors, id)
	}

	return authors, rows.Err()
}

// addBlogAuthor is idempotent: adding an existing co-author is a no-op.
func (m *BlogModel) addBlogAuthor(ctx context.Context, blogId, userId int) error {
	query := `
		INSERT INTO blog_authors (blog_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (blog_id, user_id) DO NOTHING`

	_, err := m.db.ExecContext(ctx, query, blogId, userId)
	if err != nil {
		switch {
		case ForeignKeyError(err, "blog_authors_user_id_fkey"):
			return ErrUserForeignKey
		case ForeignKeyError(err, "blog_authors_blog_id_fkey"):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *BlogModel) removeBlogAuthor(ctx context.Context, blogId, userId int) error {
	query := `
		DELETE FROM blog_authors
		WHERE blog_id = $1 AND user_id = $2`

	res, err := m.db.ExecContext(ctx, query, blogId, userId)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrRecordNotFound
	}

	return nil
}
