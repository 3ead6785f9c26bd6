package engageservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrAlreadyLiked     = errors.New("already liked")
	ErrAlreadySaved     = errors.New("already saved")
	ErrAlreadyFollowing = errors.New("already following")
)

func newEngageModel(db *sql.DB) *EngageModel {
	return &EngageModel{db: db}
}

func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func foreignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func (m *EngageModel) insertLike(ctx context.Context, like *Like) error {
	query := `
		INSERT INTO post_likes (post_id, user_id)
		VALUES ($1, $2)
		RETURNING created_at`

	err := m.db.QueryRowContext(ctx, query, like.PostID, like.UserID).Scan(&like.CreatedAt)
	if err != nil {
		switch {
		case uniqueViolation(err):
			return ErrAlreadyLiked
		case foreignKeyViolation(err):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *EngageModel) deleteLike(ctx context.Context, postId, userId int) error {
	res, err := m.db.ExecContext(ctx, "DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2", postId, userId)
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

func (m *EngageModel) countLikes(ctx context.Context, postId int) (int, error) {
	var count int
	err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM post_likes WHERE post_id = $1", postId).Scan(&count)
	return count, err
}

func (m *EngageModel) insertCommentLike(ctx context.Context, like *CommentLike) error {
	query := `
		INSERT INTO comment_likes (comment_id, user_id)
		VALUES ($1, $2)
		RETURNING created_at`

	err := m.db.QueryRowContext(ctx, query, like.CommentID, like.UserID).Scan(&like.CreatedAt)
	if err != nil {
		switch {
		case uniqueViolation(err):
			return ErrAlreadyLiked
		case foreignKeyViolation(err):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *EngageModel) insertSavedPost(ctx context.Context, saved *SavedPost) error {
	query := `
		INSERT INTO saved_posts (post_id, user_id)
		VALUES ($1, $2)
		RETURNING created_at`

	err := m.db.QueryRowContext(ctx, query, saved.PostID, saved.UserID).Scan(&saved.CreatedAt)
	if err != nil {
		switch {
		case uniqueViolation(err):
			return ErrAlreadySaved
		case foreignKeyViolation(err):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *EngageModel) deleteSavedPost(ctx context.Context, postId, userId int) error {
	res, err := m.db.ExecContext(ctx, "DELETE FROM saved_posts WHERE post_id = $1 AND user_id = $2", postId, userId)
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

func (m *EngageModel) getSavedPostIds(ctx context.Context, userId int) ([]int, error) {
	query := `
		SELECT post_id
		FROM saved_posts
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := m.db.QueryContext(ctx, query, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (m *EngageModel) insertTagFollow(ctx context.Context, follow *TagFollow) error {
	query := `
		INSERT INTO tag_follows (tag_id, user_id)
		VALUES ($1, $2)
		RETURNING created_at`

	err := m.db.QueryRowContext(ctx, query, follow.TagID, follow.UserID).Scan(&follow.CreatedAt)
	if err != nil {
		switch {
		case uniqueViolation(err):
			return ErrAlreadyFollowing
		case foreignKeyViolation(err):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *EngageModel) deleteTagFollow(ctx context.Context, tagId, userId int) error {
	res, err := m.db.ExecContext(ctx, "DELETE FROM tag_follows WHERE tag_id = $1 AND user_id = $2", tagId, userId)
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
