package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/blurblog/blur/internal/common"
)

func NewBlogService(db *sql.DB, c *common.Cache, blobs common.BlobStore, logger *slog.Logger) *BlogService {
	return &BlogService{m: newBlogModel(db), c: c, blobs: blobs, logger: logger}
}

// deleteBlob removes an uploaded file best-effort. Blob store failures are
// logged and never abort the primary mutation.
func (s *BlogService) deleteBlob(ref string) {
	if ref == "" || s.blobs == nil {
		return
	}

	err := s.blobs.Delete(ref)
	if err != nil && !errors.Is(err, common.ErrBlobNotFound) {
		s.logger.Error("could not delete blob", slog.String("ref", ref), slog.String("error", err.Error()))
	}
}

type CreateBlogRequest struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
	OwnerID     int    `json:"owner_id"`
}

// CreateBlog creates a new blog. The caller becomes the owner.
func (s *BlogService) CreateBlog(ctx context.Context, req *CreateBlogRequest) (*Blog, error) {
	v := common.NewValidator()
	validateTitle(v, req.Title)
	validateSlug(v, req.Slug)
	validateInt(v, req.OwnerID, "owner_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	blog := Blog{
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	}

	err := s.m.insertBlog(ctx, &blog)
	if err != nil {
		return nil, err
	}

	return &blog, nil
}

func (s *BlogService) GetBlogByID(ctx context.Context, id int) (*Blog, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if s.c != nil {
		if cached, ok := s.c.Get(common.CacheKeyBlog(id)); ok {
			return cached.(*Blog), nil
		}
	}

	blog, err := s.m.getBlogById(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.c != nil {
		s.c.Set(common.CacheKeyBlog(id), blog, 1*time.Minute)
	}

	return blog, nil
}

// GetBlogs returns blogs matching the search term. Default limit is 10 and
// default offset is 0.
func (s *BlogService) GetBlogs(ctx context.Context, search string, limit, offset *int) ([]Blog, error) {
	l, o := common.PageParams(limit, offset)
	return s.m.getBlogs(ctx, search, l, o)
}

// UpdateBlog updates a blog's mutable fields. Only the owner can update it.
func (s *BlogService) UpdateBlog(ctx context.Context, blog *Blog) error {
	v := common.NewValidator()
	validateTitle(v, blog.Title)
	validateInt(v, blog.ID, "id")
	validateInt(v, blog.OwnerID, "owner_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	err := s.m.updateBlog(ctx, blog)
	if err != nil {
		return err
	}

	if s.c != nil {
		s.c.Delete(common.CacheKeyBlog(blog.ID))
	}

	return nil
}

// UpdateBlogLogo stores the uploaded logo and swaps the blog's reference to
// it. The previous logo is removed from the blob store best-effort.
func (s *BlogService) UpdateBlogLogo(ctx context.Context, blogId, ownerId int, data []byte, ext string) (string, error) {
	v := common.NewValidator()
	validateInt(v, blogId, "id")
	validateInt(v, ownerId, "owner_id")
	v.Check(len(data) > 0, "logo", "must be provided")
	if !v.Valid() {
		return "", v.ValidationError()
	}

	ref, err := s.blobs.Put(data, ext)
	if err != nil {
		return "", err
	}

	old, err := s.m.updateBlogLogo(ctx, blogId, ownerId, ref)
	if err != nil {
		// the row was never updated, drop the orphaned upload
		s.deleteBlob(ref)
		return "", err
	}

	s.deleteBlob(old)

	if s.c != nil {
		s.c.Delete(common.CacheKeyBlog(blogId))
	}

	return ref, nil
}

// DeleteBlog deletes a blog and everything under it. Only the owner can
// delete it. Stored files are cleaned up after the database delete commits.
func (s *BlogService) DeleteBlog(ctx context.Context, blogId, ownerId int) error {
	v := common.NewValidator()
	validateInt(v, blogId, "id")
	validateInt(v, ownerId, "owner_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	blog, err := s.m.getBlogById(ctx, blogId)
	if err != nil {
		return err
	}

	contents, err := s.m.getPostContentsByBlog(ctx, blogId)
	if err != nil {
		return err
	}

	err = s.m.deleteBlog(ctx, blogId, ownerId)
	if err != nil {
		return err
	}

	s.deleteBlob(blog.Logo)
	for _, content := range contents {
		for _, ref := range extractImageRefs(content) {
			s.deleteBlob(ref)
		}
	}

	if s.c != nil {
		s.c.Delete(common.CacheKeyBlog(blogId))
	}

	return nil
}

// AddAuthor adds a co-author to the blog. Only the owner can manage the
// co-author set. Adding an existing co-author is a no-op.
func (s *BlogService) AddAuthor(ctx context.Context, blogId, userId, callerId int) error {
	v := common.NewValidator()
	validateInt(v, blogId, "blog_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	b, err := s.m.getBlogAccess(ctx, blogId)
	if err != nil {
		return err
	}

	if b.ownerId != callerId {
		return ErrNotAuthorized
	}

	if err := s.m.addBlogAuthor(ctx, blogId, userId); err != nil {
		return err
	}

	if s.c != nil {
		s.c.Delete(common.CacheKeyBlog(blogId))
	}

	return nil
}

func (s *BlogService) RemoveAuthor(ctx context.Context, blogId, userId, callerId int) error {
	v := common.NewValidator()
	validateInt(v, blogId, "blog_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	b, err := s.m.getBlogAccess(ctx, blogId)
	if err != nil {
		return err
	}

	if b.ownerId != callerId {
		return ErrNotAuthorized
	}

	if err := s.m.removeBlogAuthor(ctx, blogId, userId); err != nil {
		return err
	}

	if s.c != nil {
		s.c.Delete(common.CacheKeyBlog(blogId))
	}

	return nil
}

type CreatePostRequest struct {
	BlogID    int      `json:"blog_id"`
	AuthorID  int      `json:"author_id"`
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Content   string   `json:"content"`
	IsPrivate bool     `json:"is_private"`
	Tags      []string `json:"tags"`
}

// CreatePost creates a post on a blog. The author must be the blog's owner or
// a co-author; anyone else gets ErrNotAuthorized.
func (s *BlogService) CreatePost(ctx context.Context, req *CreatePostRequest) (*Post, error) {
	v := common.NewValidator()
	validateTitle(v, req.Title)
	validateSlug(v, req.Slug)
	validateContent(v, req.Content)
	validateTags(v, req.Tags)
	validateInt(v, req.BlogID, "blog_id")
	validateInt(v, req.AuthorID, "author_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	post := Post{
		BlogID:    req.BlogID,
		AuthorID:  req.AuthorID,
		Title:     req.Title,
		Slug:      req.Slug,
		Content:   sanitizeMarkdown(req.Content),
		IsPrivate: req.IsPrivate,
		Tags:      req.Tags,
	}

	err := s.m.insertPost(ctx, &post)
	if err != nil {
		return nil, err
	}

	return &post, nil
}

// GetPostByID returns a post if the viewer may see it. A private post
// requested directly by a non-member fails with ErrNotAuthorized rather than
// pretending not to exist.
func (s *BlogService) GetPostByID(ctx context.Context, id, viewerId int) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	c, err := s.m.getPostById(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := newViewerFilter(s.m, viewerId).canView(ctx, &c.blog)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	return &c.post, nil
}

// GetPostAsEditor returns a post for its blog's owner or a co-author without
// applying the visibility rules, so deactivated posts stay editable.
func (s *BlogService) GetPostAsEditor(ctx context.Context, id, userId int) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	c, err := s.m.getPostById(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.m.isOwnerOrAuthor(ctx, c.post.BlogID, userId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	return &c.post, nil
}

// GetPosts lists posts visible to the viewer. The candidate set is fetched
// first and then filtered per item; non-visible posts are dropped from the
// result, never an error.
func (s *BlogService) GetPosts(ctx context.Context, viewerId, blogId int, limit, offset *int) ([]Post, error) {
	l, o := common.PageParams(limit, offset)

	candidates, err := s.m.getPosts(ctx, blogId, l, o)
	if err != nil {
		return nil, err
	}

	filter := newViewerFilter(s.m, viewerId)

	posts := make([]Post, 0, len(candidates))
	for i := range candidates {
		ok, err := filter.canView(ctx, &candidates[i].blog)
		if err != nil {
			return nil, err
		}
		if ok {
			posts = append(posts, candidates[i].post)
		}
	}

	return posts, nil
}

// UpdatePost updates a post. The caller must be the blog's owner or a
// co-author. Images dropped from the content are removed from the blob store.
func (s *BlogService) UpdatePost(ctx context.Context, post *Post, userId int) error {
	v := common.NewValidator()
	validateTitle(v, post.Title)
	validateContent(v, post.Content)
	validateTags(v, post.Tags)
	validateInt(v, post.ID, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	b, err := s.m.getPostBlogAccess(ctx, post.ID)
	if err != nil {
		return err
	}

	ok, err := s.m.isOwnerOrAuthor(ctx, b.id, userId)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}

	post.Content = sanitizeMarkdown(post.Content)

	old, err := s.m.updatePost(ctx, post)
	if err != nil {
		return err
	}

	kept := make(map[string]bool)
	for _, ref := range extractImageRefs(post.Content) {
		kept[ref] = true
	}
	for _, ref := range extractImageRefs(old) {
		if !kept[ref] {
			s.deleteBlob(ref)
		}
	}

	return nil
}

// DeletePost deletes a post. The caller must be the blog's owner or a
// co-author.
func (s *BlogService) DeletePost(ctx context.Context, postId, userId int) error {
	v := common.NewValidator()
	validateInt(v, postId, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	c, err := s.m.getPostById(ctx, postId)
	if err != nil {
		return err
	}

	ok, err := s.m.isOwnerOrAuthor(ctx, c.blog.id, userId)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}

	err = s.m.deletePost(ctx, postId)
	if err != nil {
		return err
	}

	for _, ref := range extractImageRefs(c.post.Content) {
		s.deleteBlob(ref)
	}

	return nil
}

type CreateCommentRequest struct {
	PostID   int    `json:"post_id"`
	AuthorID int    `json:"author_id"`
	Content  string `json:"content"`
	ReplyTo  *int   `json:"reply_to"`
}

// CreateComment adds a comment to a post the author can see.
func (s *BlogService) CreateComment(ctx context.Context, req *CreateCommentRequest) (*Comment, error) {
	v := common.NewValidator()
	validateContent(v, req.Content)
	validateInt(v, req.PostID, "post_id")
	validateInt(v, req.AuthorID, "author_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	ok, err := s.CanEngagePost(ctx, req.PostID, req.AuthorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	comment := Comment{
		PostID:   req.PostID,
		AuthorID: req.AuthorID,
		Content:  req.Content,
		ReplyTo:  req.ReplyTo,
	}

	err = s.m.insertComment(ctx, &comment)
	if err != nil {
		return nil, err
	}

	return &comment, nil
}

// GetComments lists a post's comments if the viewer may see the post.
func (s *BlogService) GetComments(ctx context.Context, postId, viewerId int) ([]Comment, error) {
	v := common.NewValidator()
	validateInt(v, postId, "post_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	ok, err := s.CanViewPost(ctx, postId, viewerId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	return s.m.getCommentsByPost(ctx, postId)
}

// DeleteComment deletes a comment. Only its author can delete it.
func (s *BlogService) DeleteComment(ctx context.Context, commentId, authorId int) error {
	v := common.NewValidator()
	validateInt(v, commentId, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.deleteComment(ctx, commentId, authorId)
}

// SubmitSubscribeRequest opens a pending membership request against a private
// blog. Public blogs have no membership gate, so a request against one fails
// with ErrBlogNotPrivate. A user who already has access fails with
// ErrAlreadyMember, and a second live request with ErrDuplicateRequest.
func (s *BlogService) SubmitSubscribeRequest(ctx context.Context, blogId, userId int) (*SubscribeRequest, error) {
	v := common.NewValidator()
	validateInt(v, blogId, "blog_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	b, err := s.m.getBlogAccess(ctx, blogId)
	if err != nil {
		return nil, err
	}

	if !b.isPrivate {
		return nil, ErrBlogNotPrivate
	}

	member, err := s.m.isMember(ctx, blogId, userId)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrAlreadyMember
	}

	return s.m.insertRequest(ctx, blogId, userId)
}

// ResolveSubscribeRequest accepts or rejects a pending request. Only the
// blog's owner or a co-author may resolve. Resolving an already-resolved
// request fails with ErrRecordNotFound; it never duplicates a membership.
func (s *BlogService) ResolveSubscribeRequest(ctx context.Context, requestId int, status RequestStatus, resolverId int) (*SubscribeRequest, error) {
	v := common.NewValidator()
	validateInt(v, requestId, "id")
	validateStatus(v, status)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	req, err := s.m.getRequestById(ctx, requestId)
	if err != nil {
		return nil, err
	}

	ok, err := s.m.isOwnerOrAuthor(ctx, req.BlogID, resolverId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	return s.m.resolveRequest(ctx, requestId, status)
}

// GetPendingRequests lists a blog's live requests for its owner or
// co-authors.
func (s *BlogService) GetPendingRequests(ctx context.Context, blogId, callerId int) ([]SubscribeRequest, error) {
	v := common.NewValidator()
	validateInt(v, blogId, "blog_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	ok, err := s.m.isOwnerOrAuthor(ctx, blogId, callerId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	return s.m.getPendingRequests(ctx, blogId)
}

// GetSubscribers lists a blog's confirmed subscribers for its owner or
// co-authors.
func (s *BlogService) GetSubscribers(ctx context.Context, blogId, callerId int) ([]Subscriber, error) {
	v := common.NewValidator()
	validateInt(v, blogId, "blog_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	ok, err := s.m.isOwnerOrAuthor(ctx, blogId, callerId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	return s.m.getSubscribers(ctx, blogId)
}
