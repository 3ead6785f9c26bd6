package blogservice

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrBlogNotPrivate   = errors.New("blog is not private")
	ErrAlreadyMember    = errors.New("already a member")
	ErrDuplicateRequest = errors.New("duplicate subscribe request")
)

// insertRequest creates a pending request. The partial unique index on
// (blog_id, user_id) WHERE NOT is_deleted closes the race between two
// concurrent submissions: the loser surfaces as ErrDuplicateRequest.
func (m *BlogModel) insertRequest(ctx context.Context, blogId, userId int) (*SubscribeRequest, error) {
	query := `
		INSERT INTO subscribe_requests (blog_id, user_id)
		VALUES ($1, $2)
		RETURNING id, blog_id, user_id, status, is_deleted, requested_at`

	var req SubscribeRequest
	err := m.db.QueryRowContext(ctx, query, blogId, userId).Scan(&req.ID, &req.BlogID, &req.UserID, &req.Status, &req.IsDeleted, &req.RequestedAt)
	if err != nil {
		switch {
		case UniqueViolationError(err, "subscribe_requests_live_idx"):
			return nil, ErrDuplicateRequest
		case ForeignKeyError(err, "subscribe_requests_blog_id_fkey"):
			return nil, ErrRecordNotFound
		case ForeignKeyError(err, "subscribe_requests_user_id_fkey"):
			return nil, ErrUserForeignKey
		default:
			return nil, err
		}
	}

	return &req, nil
}

func (m *BlogModel) getRequestById(ctx context.Context, id int) (*SubscribeRequest, error) {
	query := `
		SELECT id, blog_id, user_id, status, is_deleted, requested_at, resolved_at
		FROM subscribe_requests
		WHERE id = $1`

	var req SubscribeRequest
	var resolvedAt sql.NullTime

	err := m.db.QueryRowContext(ctx, query, id).Scan(&req.ID, &req.BlogID, &req.UserID, &req.Status, &req.IsDeleted, &req.RequestedAt, &resolvedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	if resolvedAt.Valid {
		req.ResolvedAt = &resolvedAt.Time
	}

	return &req, nil
}

// resolveRequest moves a pending request to a terminal state. The update is a
// compare-and-swap on is_deleted, so a second resolution of the same request
// matches zero rows and reports ErrRecordNotFound instead of repeating the
// side effects. On acceptance the subscribers insert is part of the same
// transaction and tolerates an existing row, keeping membership creation
// idempotent.
func (m *BlogModel) resolveRequest(ctx context.Context, id int, status RequestStatus) (*SubscribeRequest, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE subscribe_requests
		SET status = $1, is_deleted = true, resolved_at = now()
		WHERE id = $2 AND NOT is_deleted
		RETURNING id, blog_id, user_id, status, is_deleted, requested_at, resolved_at`

	var req SubscribeRequest
	var resolvedAt sql.NullTime

	err = tx.QueryRowContext(ctx, query, string(status), id).Scan(&req.ID, &req.BlogID, &req.UserID, &req.Status, &req.IsDeleted, &req.RequestedAt, &resolvedAt)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	if resolvedAt.Valid {
		req.ResolvedAt = &resolvedAt.Time
	}

	if status == RequestAccepted {
		insert := `
			INSERT INTO subscribers (blog_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (blog_id, user_id) DO NOTHING`

		_, err = tx.ExecContext(ctx, insert, req.BlogID, req.UserID)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &req, nil
}

func (m *BlogModel) getPendingRequests(ctx context.Context, blogId int) ([]SubscribeRequest, error) {
	query := `
		SELECT id, blog_id, user_id, status, is_deleted, requested_at
		FROM subscribe_requests
		WHERE blog_id = $1 AND NOT is_deleted
		ORDER BY requested_at`

	rows, err := m.db.QueryContext(ctx, query, blogId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []SubscribeRequest
	for rows.Next() {
		var req SubscribeRequest
		err := rows.Scan(&req.ID, &req.BlogID, &req.UserID, &req.Status, &req.IsDeleted, &req.RequestedAt)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}
