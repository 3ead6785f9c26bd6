package blogservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blurblog/blur/internal/common"
)

func TestCreateBlog(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createTestUser(t, db, nextUsername())

	testCases := []struct {
		name        string
		req         *CreateBlogRequest
		expectedErr error
	}{
		{
			name: "valid blog",
			req: &CreateBlogRequest{
				Title:   "My Blog",
				Slug:    "my-blog",
				OwnerID: owner,
			},
			expectedErr: nil,
		},
		{
			name: "duplicate slug",
			req: &CreateBlogRequest{
				Title:   "My Other Blog",
				Slug:    "my-blog",
				OwnerID: owner,
			},
			expectedErr: ErrDuplicateSlug,
		},
		{
			name: "empty title",
			req: &CreateBlogRequest{
				Slug:    "no-title",
				OwnerID: owner,
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"title": "must be provided"}},
		},
		{
			name: "bad slug",
			req: &CreateBlogRequest{
				Title:   "Bad Slug",
				Slug:    "Bad Slug!",
				OwnerID: owner,
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"slug": "must be lowercase letters, numbers, and hyphens"}},
		},
		{
			name: "missing owner",
			req: &CreateBlogRequest{
				Title:   "Orphan Blog",
				Slug:    "orphan-blog",
				OwnerID: 99999,
			},
			expectedErr: ErrUserForeignKey,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blog, err := s.CreateBlog(ctx, tc.req)
			assert.Equal(t, tc.expectedErr, err)

			if tc.expectedErr == nil {
				assert.NotZero(t, blog.ID)
				assert.True(t, blog.IsActive)
			}
		})
	}
}

// A post's author must be the blog's owner or a co-author at write time.
// Removing a co-author later does not invalidate their existing posts.
func TestCreatePostAuthorInvariant(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createTestUser(t, db, nextUsername())
	author := createTestUser(t, db, nextUsername())
	stranger := createTestUser(t, db, nextUsername())

	blog := createTestBlog(t, db, owner, "team-blog", false)

	err := s.m.addBlogAuthor(ctx, blog, author)
	require.NoError(t, err)

	_, err = s.CreatePost(ctx, &CreatePostRequest{
		BlogID:   blog,
		AuthorID: owner,
		Title:    "Owner Post",
		Slug:     "owner-post",
		Content:  "By the owner.",
	})
	assert.NoError(t, err)

	post, err := s.CreatePost(ctx, &CreatePostRequest{
		BlogID:   blog,
		AuthorID: author,
		Title:    "Author Post",
		Slug:     "author-post",
		Content:  "By a co-author.",
	})
	assert.NoError(t, err)

	_, err = s.CreatePost(ctx, &CreatePostRequest{
		BlogID:   blog,
		AuthorID: stranger,
		Title:    "Stranger Post",
		Slug:     "stranger-post",
		Content:  "Should not land.",
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// removal is not retroactive
	err = s.RemoveAuthor(ctx, blog, author, owner)
	require.NoError(t, err)

	got, err := s.GetPostByID(ctx, post.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, author, got.AuthorID)

	_, err = s.CreatePost(ctx, &CreatePostRequest{
		BlogID:   blog,
		AuthorID: author,
		Title:    "Late Post",
		Slug:     "late-post",
		Content:  "No longer allowed.",
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

// Tags are auto-created on first use and shared across posts.
func TestCreatePostTags(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createTestUser(t, db, nextUsername())
	blog := createTestBlog(t, db, owner, "tagged-blog", false)

	post, err := s.CreatePost(ctx, &CreatePostRequest{
		BlogID:   blog,
		AuthorID: owner,
		Title:    "Tagged Post",
		Slug:     "tagged-post",
		Content:  "Content.",
		Tags:     []string{"go", "databases"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"databases", "go"}, mustGetPostTags(t, s, ctx, post.ID))

	// reusing a tag does not duplicate it
	_, err = s.CreatePost(ctx, &CreatePostRequest{
		BlogID:   blog,
		AuthorID: owner,
		Title:    "Second Post",
		Slug:     "second-post",
		Content:  "Content.",
		Tags:     []string{"go"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM tags WHERE name = 'go'"))

	tag, err := s.m.getTagByName(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, "go", tag.Name)
}

func mustGetPostTags(t *testing.T, s *BlogService, ctx context.Context, postId int) []string {
	t.Helper()

	tags, err := s.m.getPostTags(ctx, postId)
	if err != nil {
		t.Fatalf("could not get post tags: %v", err)
	}

	return tags
}

func TestCreateComment(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createTestUser(t, db, nextUsername())
	reader := createTestUser(t, db, nextUsername())
	stranger := createTestUser(t, db, nextUsername())

	publicBlog := createTestBlog(t, db, owner, "talk-blog", false)
	privateBlog := createTestBlog(t, db, owner, "quiet-blog", true)

	publicPost := createTestPost(t, db, publicBlog, owner, "talk-post")
	privatePost := createTestPost(t, db, privateBlog, owner, "quiet-post")

	// anyone may comment on a public post
	comment, err := s.CreateComment(ctx, &CreateCommentRequest{
		PostID:   publicPost,
		AuthorID: reader,
		Content:  "Nice post.",
	})
	require.NoError(t, err)

	// a reply must target a comment on the same post
	otherPost := createTestPost(t, db, publicBlog, owner, "other-post")

	_, err = s.CreateComment(ctx, &CreateCommentRequest{
		PostID:   otherPost,
		AuthorID: reader,
		Content:  "Cross-post reply.",
		ReplyTo:  &comment.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidReply)

	reply, err := s.CreateComment(ctx, &CreateCommentRequest{
		PostID:   publicPost,
		AuthorID: owner,
		Content:  "Thanks.",
		ReplyTo:  &comment.ID,
	})
	assert.NoError(t, err)
	assert.Equal(t, comment.ID, *reply.ReplyTo)

	// private posts only take comments from members
	_, err = s.CreateComment(ctx, &CreateCommentRequest{
		PostID:   privatePost,
		AuthorID: stranger,
		Content:  "Let me in.",
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	comments, err := s.GetComments(ctx, publicPost, reader)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	_, err = s.GetComments(ctx, privatePost, stranger)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestGetBlogs(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createTestUser(t, db, nextUsername())

	_, err := db.Exec("INSERT INTO blogs (owner_id, title, slug, description) VALUES ($1, 'Cooking at Home', 'cooking', 'recipes and food')", owner)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO blogs (owner_id, title, slug, description) VALUES ($1, 'Systems Notes', 'systems', 'low level bits')", owner)
	require.NoError(t, err)

	limit, offset := 10, 0

	blogs, err := s.GetBlogs(ctx, "", &limit, &offset)
	require.NoError(t, err)
	assert.Len(t, blogs, 2)

	blogs, err = s.GetBlogs(ctx, "cooking", &limit, &offset)
	require.NoError(t, err)
	assert.Len(t, blogs, 1)
	assert.Equal(t, "Cooking at Home", blogs[0].Title)

	// description is searched too
	blogs, err = s.GetBlogs(ctx, "low level", &limit, &offset)
	require.NoError(t, err)
	assert.Len(t, blogs, 1)
	assert.Equal(t, "Systems Notes", blogs[0].Title)
}

func TestDeleteBlogCascades(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createTestUser(t, db, nextUsername())
	user := createTestUser(t, db, nextUsername())
	blog := createTestBlog(t, db, owner, "doomed-blog", true)
	post := createTestPost(t, db, blog, owner, "doomed-post")
	createTestComment(t, db, post, owner)

	req, err := s.SubmitSubscribeRequest(ctx, blog, user)
	require.NoError(t, err)
	_, err = s.ResolveSubscribeRequest(ctx, req.ID, RequestAccepted, owner)
	require.NoError(t, err)

	// only the owner can delete
	err = s.DeleteBlog(ctx, blog, user)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	err = s.DeleteBlog(ctx, blog, owner)
	require.NoError(t, err)

	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM posts WHERE blog_id = $1", blog))
	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM comments"))
	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM subscribers WHERE blog_id = $1", blog))
	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM subscribe_requests WHERE blog_id = $1", blog))
}
