package blogservice

import (
	"context"
	"database/sql"
	"errors"
)

// blogAccess carries the blog fields the visibility rules need.
type blogAccess struct {
	id        int
	ownerId   int
	isActive  bool
	isPrivate bool
}

func (m *BlogModel) getBlogAccess(ctx context.Context, blogId int) (*blogAccess, error) {
	query := `
		SELECT id, owner_id, is_active, is_private
		FROM blogs
		WHERE id = $1`

	var b blogAccess
	err := m.db.QueryRowContext(ctx, query, blogId).Scan(&b.id, &b.ownerId, &b.isActive, &b.isPrivate)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &b, nil
}

// A post flagged private narrows a public blog to members only.
func (m *BlogModel) getPostBlogAccess(ctx context.Context, postId int) (*blogAccess, error) {
	query := `
		SELECT b.id, b.owner_id, b.is_active AND p.is_active, b.is_private OR p.is_private
		FROM posts p
		JOIN blogs b ON p.blog_id = b.id
		WHERE p.id = $1`

	var b blogAccess
	err := m.db.QueryRowContext(ctx, query, postId).Scan(&b.id, &b.ownerId, &b.isActive, &b.isPrivate)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &b, nil
}

func (m *BlogModel) getCommentBlogAccess(ctx context.Context, commentId int) (*blogAccess, error) {
	query := `
		SELECT b.id, b.owner_id, b.is_active AND p.is_active, b.is_private OR p.is_private
		FROM comments c
		JOIN posts p ON c.post_id = p.id
		JOIN blogs b ON p.blog_id = b.id
		WHERE c.id = $1`

	var b blogAccess
	err := m.db.QueryRowContext(ctx, query, commentId).Scan(&b.id, &b.ownerId, &b.isActive, &b.isPrivate)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &b, nil
}

// viewerFilter applies the visibility rules for a single viewer. Membership
// lookups are memoized per blog so filtering a list of posts touches the
// subscribers table at most once per blog.
type viewerFilter struct {
	m        *BlogModel
	viewerId int
	member   map[int]bool
}

func newViewerFilter(m *BlogModel, viewerId int) *viewerFilter {
	return &viewerFilter{
		m:        m,
		viewerId: viewerId,
		member:   make(map[int]bool),
	}
}

// canView decides whether the viewer may read content belonging to the blog.
// Inactive blogs are hidden from everyone, the owner included. Public blogs
// are open to anyone, anonymous viewers included. Private blogs require
// membership.
func (f *viewerFilter) canView(ctx context.Context, b *blogAccess) (bool, error) {
	if !b.isActive {
		return false, nil
	}

	if !b.isPrivate {
		return true, nil
	}

	if f.viewerId == 0 {
		return false, nil
	}

	if ok, seen := f.member[b.id]; seen {
		return ok, nil
	}

	ok, err := f.m.isMember(ctx, b.id, f.viewerId)
	if err != nil {
		return false, err
	}

	f.member[b.id] = ok
	return ok, nil
}

// IsMember reports whether the user is the blog's owner, a co-author, or a
// confirmed subscriber.
func (s *BlogService) IsMember(ctx context.Context, blogId, userId int) (bool, error) {
	return s.m.isMember(ctx, blogId, userId)
}

// CanViewPost reports whether the viewer may read the given post. A viewer id
// of zero means anonymous. Returns ErrRecordNotFound if the post is missing.
func (s *BlogService) CanViewPost(ctx context.Context, postId, viewerId int) (bool, error) {
	b, err := s.m.getPostBlogAccess(ctx, postId)
	if err != nil {
		return false, err
	}

	return newViewerFilter(s.m, viewerId).canView(ctx, b)
}

// CanEngagePost gates likes, saves and comments on a post. Engagement uses
// the same rule as viewing: anything a user can read they can engage with,
// and nothing else.
func (s *BlogService) CanEngagePost(ctx context.Context, postId, viewerId int) (bool, error) {
	return s.CanViewPost(ctx, postId, viewerId)
}

// CanEngageComment gates likes on a comment, using the owning post's blog.
func (s *BlogService) CanEngageComment(ctx context.Context, commentId, viewerId int) (bool, error) {
	b, err := s.m.getCommentBlogAccess(ctx, commentId)
	if err != nil {
		return false, err
	}

	return newViewerFilter(s.m, viewerId).canView(ctx, b)
}
