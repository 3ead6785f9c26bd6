package blogservice

import (
	"context"
)

// isMember reports whether the user may read the blog's private content:
// owner, co-author, or confirmed subscriber. Public blogs never consult this.
func (m *BlogModel) isMember(ctx context.Context, blogId, userId int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blogs b WHERE b.id = $1 AND b.owner_id = $2
			UNION ALL
			SELECT 1 FROM blog_authors a WHERE a.blog_id = $1 AND a.user_id = $2
			UNION ALL
			SELECT 1 FROM subscribers s WHERE s.blog_id = $1 AND s.user_id = $2
		)`

	var ok bool
	err := m.db.QueryRowContext(ctx, query, blogId, userId).Scan(&ok)
	if err != nil {
		return false, err
	}

	return ok, nil
}

// isOwnerOrAuthor is the stricter check used for write permissions: creating
// posts, resolving subscribe requests. Subscribers do not pass.
func (m *BlogModel) isOwnerOrAuthor(ctx context.Context, blogId, userId int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blogs b WHERE b.id = $1 AND b.owner_id = $2
			UNION ALL
			SELECT 1 FROM blog_authors a WHERE a.blog_id = $1 AND a.user_id = $2
		)`

	var ok bool
	err := m.db.QueryRowContext(ctx, query, blogId, userId).Scan(&ok)
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (m *BlogModel) getSubscribers(ctx context.Context, blogId int) ([]Subscriber, error) {
	query := `
		SELECT blog_id, user_id, subscribed_at
		FROM subscribers
		WHERE blog_id = $1
		ORDER BY subscribed_at`

	rows, err := m.db.QueryContext(ctx, query, blogId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subscribers []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.BlogID, &s.UserID, &s.SubscribedAt); err != nil {
			return nil, err
		}
		subscribers = append(subscribers, s)
	}

	return subscribers, rows.Err()
}
