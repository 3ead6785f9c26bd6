package engageservice

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blurblog/blur/internal/blogservice"
	"github.com/blurblog/blur/internal/common"
)

func setupTestEnvironment(t *testing.T) (*EngageService, *sql.DB) {
	db := common.TestDB("file://../../migrations", t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	blogs := blogservice.NewBlogService(db, nil, nil, logger)

	return NewEngageService(db, blogs, nil), db
}

func createUser(t *testing.T, db *sql.DB, username string) int {
	t.Helper()

	var id int
	err := db.QueryRow("INSERT INTO users (username, email, password) VALUES ($1, $2, $3) RETURNING id", username, username+"@example.com", []byte("x")).Scan(&id)
	require.NoError(t, err)

	return id
}

func createBlog(t *testing.T, db *sql.DB, ownerId int, slug string, private bool) int {
	t.Helper()

	var id int
	err := db.QueryRow("INSERT INTO blogs (owner_id, title, slug, is_private) VALUES ($1, 'Blog', $2, $3) RETURNING id", ownerId, slug, private).Scan(&id)
	require.NoError(t, err)

	return id
}

func createPost(t *testing.T, db *sql.DB, blogId, authorId int, slug string) int {
	t.Helper()

	var id int
	err := db.QueryRow("INSERT INTO posts (blog_id, author_id, title, slug, content) VALUES ($1, $2, 'Post', $3, 'content') RETURNING id", blogId, authorId, slug).Scan(&id)
	require.NoError(t, err)

	return id
}

func createComment(t *testing.T, db *sql.DB, postId, authorId int) int {
	t.Helper()

	var id int
	err := db.QueryRow("INSERT INTO comments (post_id, author_id, content) VALUES ($1, $2, 'comment') RETURNING id", postId, authorId).Scan(&id)
	require.NoError(t, err)

	return id
}

// Engagement on private content is refused for non-members and allowed once
// membership exists.
func TestLikePostVisibilityGate(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	stranger := createUser(t, db, "stranger")

	blog := createBlog(t, db, owner, "gated", true)
	post := createPost(t, db, blog, owner, "gated-post")

	_, err := s.LikePost(ctx, post, stranger)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// membership flips the gate
	_, err = db.Exec("INSERT INTO subscribers (blog_id, user_id) VALUES ($1, $2)", blog, stranger)
	require.NoError(t, err)

	like, err := s.LikePost(ctx, post, stranger)
	require.NoError(t, err)
	assert.Equal(t, post, like.PostID)

	_, err = s.LikePost(ctx, post, stranger)
	assert.ErrorIs(t, err, ErrAlreadyLiked)

	count, err := s.CountLikes(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = s.UnlikePost(ctx, post, stranger)
	assert.NoError(t, err)

	err = s.UnlikePost(ctx, post, stranger)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLikeComment(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	reader := createUser(t, db, "reader")
	stranger := createUser(t, db, "stranger")

	publicBlog := createBlog(t, db, owner, "open", false)
	privateBlog := createBlog(t, db, owner, "closed", true)

	publicPost := createPost(t, db, publicBlog, owner, "open-post")
	privatePost := createPost(t, db, privateBlog, owner, "closed-post")

	publicComment := createComment(t, db, publicPost, owner)
	privateComment := createComment(t, db, privatePost, owner)

	like, err := s.LikeComment(ctx, publicComment, reader)
	require.NoError(t, err)
	assert.Equal(t, publicComment, like.CommentID)

	_, err = s.LikeComment(ctx, publicComment, reader)
	assert.ErrorIs(t, err, ErrAlreadyLiked)

	_, err = s.LikeComment(ctx, privateComment, stranger)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestSavePost(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	reader := createUser(t, db, "reader")

	blog := createBlog(t, db, owner, "open", false)
	p1 := createPost(t, db, blog, owner, "post-1")
	p2 := createPost(t, db, blog, owner, "post-2")

	_, err := s.SavePost(ctx, p1, reader)
	require.NoError(t, err)

	_, err = s.SavePost(ctx, p2, reader)
	require.NoError(t, err)

	_, err = s.SavePost(ctx, p1, reader)
	assert.ErrorIs(t, err, ErrAlreadySaved)

	ids, err := s.GetSavedPostIds(ctx, reader)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{p1, p2}, ids)

	// a save does not outlive visibility: the blog going private hides it
	_, err = db.Exec("UPDATE blogs SET is_private = true WHERE id = $1", blog)
	require.NoError(t, err)

	ids, err = s.GetSavedPostIds(ctx, reader)
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = s.UnsavePost(ctx, p1, reader)
	assert.NoError(t, err)
}

func TestFollowTag(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	user := createUser(t, db, "user")

	var tagId int
	err := db.QueryRow("INSERT INTO tags (name) VALUES ('go') RETURNING id").Scan(&tagId)
	require.NoError(t, err)

	follow, err := s.FollowTag(ctx, tagId, user)
	require.NoError(t, err)
	assert.Equal(t, tagId, follow.TagID)

	_, err = s.FollowTag(ctx, tagId, user)
	assert.ErrorIs(t, err, ErrAlreadyFollowing)

	err = s.UnfollowTag(ctx, tagId, user)
	assert.NoError(t, err)

	_, err = s.FollowTag(ctx, 99999, user)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestReportPost(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	reporter := createUser(t, db, "reporter")

	blog := createBlog(t, db, owner, "open", false)
	post := createPost(t, db, blog, owner, "spammy-post")

	report, err := s.ReportPost(ctx, post, reporter, "spam")
	require.NoError(t, err)
	assert.Equal(t, ReportOpen, report.Status)
	assert.NotZero(t, report.ID)

	// reports have no dedup rule
	_, err = s.ReportPost(ctx, post, reporter, "still spam")
	assert.NoError(t, err)

	limit, offset := 10, 0
	reports, err := s.GetOpenReports(ctx, &limit, &offset)
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	_, err = s.ReportPost(ctx, 99999, reporter, "ghost")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
