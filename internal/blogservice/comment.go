package blogservice

import (
	"context"
	"database/sql"
	"errors"
)

var ErrInvalidReply = errors.New("reply does not belong to the same post")

// insertComment writes a comment, checking inside the transaction that the
// reply target (if any) belongs to the same post. Cross-post reply chains are
// rejected with ErrInvalidReply.
func (m *BlogModel) insertComment(ctx context.Context, comment *Comment) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if comment.ReplyTo != nil {
		var parentPostId int
		err := tx.QueryRowContext(ctx, "SELECT post_id FROM comments WHERE id = $1", *comment.ReplyTo).Scan(&parentPostId)
		if err != nil {
			_ = tx.Rollback()
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return ErrInvalidReply
			default:
				return err
			}
		}

		if parentPostId != comment.PostID {
			_ = tx.Rollback()
			return ErrInvalidReply
		}
	}

	query := `
		INSERT INTO comments (post_id, author_id, content, reply_to)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err = tx.QueryRowContext(ctx, query, comment.PostID, comment.AuthorID, comment.Content, comment.ReplyTo).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case ForeignKeyError(err, "comments_post_id_fkey"):
			return ErrRecordNotFound
		case ForeignKeyError(err, "comments_author_id_fkey"):
			return ErrUserForeignKey
		default:
			return err
		}
	}

	return tx.Commit()
}

func (m *BlogModel) getCommentsByPost(ctx context.Context, postId int) ([]Comment, error) {
	query := `
		SELECT id, post_id, author_id, content, reply_to, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at`

	rows, err := m.db.QueryContext(ctx, query, postId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		var replyTo sql.NullInt64

		err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &replyTo, &c.CreatedAt)
		if err != nil {
			return nil, err
		}

		if replyTo.Valid {
			id := int(replyTo.Int64)
			c.ReplyTo = &id
		}

		comments = append(comments, c)
	}

	return comments, rows.Err()
}

func (m *BlogModel) deleteComment(ctx context.Context, commentId, authorId int) error {
	query := `
		DELETE FROM comments
		WHERE id = $1 AND author_id = $2`

	res, err := m.db.ExecContext(ctx, query, commentId, authorId)
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
