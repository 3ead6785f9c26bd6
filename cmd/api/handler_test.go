package main

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blurblog/blur/internal/userservice"
)

func TestHealthcheck(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	status, _, body := ts.get(t, "/v1/healthcheck", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "available", body["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	status, _, body := ts.post(t, "/v1/users/register", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "Test_1234!",
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	activationToken, ok := body["token"].(string)
	require.True(t, ok)

	// weak password rejected
	status, _, _ = ts.post(t, "/v1/users/register", map[string]any{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "weak",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	// duplicate username rejected
	status, _, _ = ts.post(t, "/v1/users/register", map[string]any{
		"username": "alice",
		"email":    "other@example.com",
		"password": "Test_1234!",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _, _ = ts.put(t, "/v1/users/activate", map[string]any{"token": activationToken}, nil)
	require.Equal(t, http.StatusOK, status)

	var activated bool
	err := db.QueryRow("SELECT activated FROM users WHERE username = 'alice'").Scan(&activated)
	require.NoError(t, err)
	assert.True(t, activated)

	status, _, body = ts.post(t, "/v1/users/login", map[string]any{
		"username": "alice",
		"password": "Test_1234!",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	status, _, _ = ts.post(t, "/v1/users/login", map[string]any{
		"username": "alice",
		"password": "Wrong_1234!",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBlogEndpoints(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, token := registerActivatedUser(t, app, db, "owner")

	// anonymous users cannot create blogs
	status, _, _ := ts.post(t, "/v1/blogs", map[string]any{"title": "My Blog", "slug": "my-blog"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _, body := ts.post(t, "/v1/blogs", map[string]any{
		"title":       "My Blog",
		"slug":        "my-blog",
		"description": "all about gardening",
	}, &token)
	require.Equal(t, http.StatusCreated, status)

	blog, ok := body["blog"].(map[string]any)
	require.True(t, ok)
	blogId := int(blog["id"].(float64))

	status, _, _ = ts.post(t, "/v1/blogs", map[string]any{"title": "Other", "slug": "my-blog"}, &token)
	assert.Equal(t, http.StatusConflict, status)

	status, _, body = ts.get(t, fmt.Sprintf("/v1/blogs/%d", blogId), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "My Blog", body["blog"].(map[string]any)["title"])

	status, _, body = ts.get(t, "/v1/blogs?q=gardening", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["blogs"].([]any), 1)

	status, _, _ = ts.get(t, "/v1/blogs/999999", nil)
	assert.Equal(t, http.StatusNotFound, status)

	// only the owner can update
	_, otherToken := registerActivatedUser(t, app, db, "other")
	status, _, _ = ts.put(t, fmt.Sprintf("/v1/blogs/%d", blogId), map[string]any{"title": "Hijacked"}, &otherToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, _, body = ts.put(t, fmt.Sprintf("/v1/blogs/%d", blogId), map[string]any{"title": "Renamed"}, &token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Renamed", body["blog"].(map[string]any)["title"])
}

func TestPostVisibilityOverHTTP(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, ownerToken := registerActivatedUser(t, app, db, "owner")
	_, strangerToken := registerActivatedUser(t, app, db, "stranger")

	status, _, body := ts.post(t, "/v1/blogs", map[string]any{
		"title":      "Secret Garden",
		"slug":       "secret-garden",
		"is_private": true,
	}, &ownerToken)
	require.Equal(t, http.StatusCreated, status)
	blogId := int(body["blog"].(map[string]any)["id"].(float64))

	status, _, body = ts.post(t, "/v1/posts", map[string]any{
		"blog_id": blogId,
		"title":   "Hidden Post",
		"slug":    "hidden-post",
		"content": "for members only",
		"tags":    []string{"secrets"},
	}, &ownerToken)
	require.Equal(t, http.StatusCreated, status)
	postId := int(body["post"].(map[string]any)["id"].(float64))

	// owner sees it, stranger and anonymous get 403
	status, _, _ = ts.get(t, fmt.Sprintf("/v1/posts/%d", postId), &ownerToken)
	assert.Equal(t, http.StatusOK, status)

	status, _, _ = ts.get(t, fmt.Sprintf("/v1/posts/%d", postId), &strangerToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, _, _ = ts.get(t, fmt.Sprintf("/v1/posts/%d", postId), nil)
	assert.Equal(t, http.StatusForbidden, status)

	// the list silently drops what the viewer cannot see
	status, _, body = ts.get(t, "/v1/posts", &strangerToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["posts"])

	status, _, body = ts.get(t, "/v1/posts", &ownerToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["posts"].([]any), 1)

	// engagement is refused where viewing is
	status, _, _ = ts.post(t, fmt.Sprintf("/v1/posts/%d/likes", postId), nil, &strangerToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, _, _ = ts.post(t, fmt.Sprintf("/v1/posts/%d/comments", postId), map[string]any{"content": "hello"}, &strangerToken)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestSubscribeRequestFlow(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, ownerToken := registerActivatedUser(t, app, db, "owner")
	_, readerToken := registerActivatedUser(t, app, db, "reader")

	status, _, body := ts.post(t, "/v1/blogs", map[string]any{
		"title":      "Members Club",
		"slug":       "members-club",
		"is_private": true,
	}, &ownerToken)
	require.Equal(t, http.StatusCreated, status)
	blogId := int(body["blog"].(map[string]any)["id"].(float64))

	status, _, body = ts.post(t, "/v1/posts", map[string]any{
		"blog_id": blogId,
		"title":   "Inside",
		"slug":    "inside",
		"content": "members only",
	}, &ownerToken)
	require.Equal(t, http.StatusCreated, status)
	postId := int(body["post"].(map[string]any)["id"].(float64))

	status, _, body = ts.post(t, "/v1/subscribe-requests", map[string]any{"blog_id": blogId}, &readerToken)
	require.Equal(t, http.StatusCreated, status)
	request := body["subscribe_request"].(map[string]any)
	requestId := int(request["id"].(float64))
	assert.Equal(t, "pending", request["status"])

	// a second live request conflicts
	status, _, _ = ts.post(t, "/v1/subscribe-requests", map[string]any{"blog_id": blogId}, &readerToken)
	assert.Equal(t, http.StatusConflict, status)

	// only the owner may resolve
	status, _, _ = ts.patch(t, fmt.Sprintf("/v1/subscribe-requests/%d", requestId), map[string]any{"status": "accepted"}, &readerToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, _, body = ts.patch(t, fmt.Sprintf("/v1/subscribe-requests/%d", requestId), map[string]any{"status": "accepted"}, &ownerToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "accepted", body["subscribe_request"].(map[string]any)["status"])

	// resolving twice hits the conditional write
	status, _, _ = ts.patch(t, fmt.Sprintf("/v1/subscribe-requests/%d", requestId), map[string]any{"status": "rejected"}, &ownerToken)
	assert.Equal(t, http.StatusNotFound, status)

	// membership unlocks the content
	status, _, _ = ts.get(t, fmt.Sprintf("/v1/posts/%d", postId), &readerToken)
	assert.Equal(t, http.StatusOK, status)

	// and makes further requests conflict
	status, _, _ = ts.post(t, "/v1/subscribe-requests", map[string]any{"blog_id": blogId}, &readerToken)
	assert.Equal(t, http.StatusConflict, status)

	status, _, body = ts.get(t, fmt.Sprintf("/v1/blogs/%d/subscribers", blogId), &ownerToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["subscribers"].([]any), 1)
}

func TestSubscribeRequestPublicBlog(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, ownerToken := registerActivatedUser(t, app, db, "owner")
	_, readerToken := registerActivatedUser(t, app, db, "reader")

	status, _, body := ts.post(t, "/v1/blogs", map[string]any{
		"title": "Open Blog",
		"slug":  "open-blog",
	}, &ownerToken)
	require.Equal(t, http.StatusCreated, status)
	blogId := int(body["blog"].(map[string]any)["id"].(float64))

	status, _, _ = ts.post(t, "/v1/subscribe-requests", map[string]any{"blog_id": blogId}, &readerToken)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLikeConflict(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, ownerToken := registerActivatedUser(t, app, db, "owner")
	_, readerToken := registerActivatedUser(t, app, db, "reader")

	status, _, body := ts.post(t, "/v1/blogs", map[string]any{"title": "Open Blog", "slug": "open-blog"}, &ownerToken)
	require.Equal(t, http.StatusCreated, status)
	blogId := int(body["blog"].(map[string]any)["id"].(float64))

	status, _, body = ts.post(t, "/v1/posts", map[string]any{
		"blog_id": blogId,
		"title":   "Likeable",
		"slug":    "likeable",
		"content": "like me",
	}, &ownerToken)
	require.Equal(t, http.StatusCreated, status)
	postId := int(body["post"].(map[string]any)["id"].(float64))

	status, _, _ = ts.post(t, fmt.Sprintf("/v1/posts/%d/likes", postId), nil, &readerToken)
	assert.Equal(t, http.StatusCreated, status)

	status, _, _ = ts.post(t, fmt.Sprintf("/v1/posts/%d/likes", postId), nil, &readerToken)
	assert.Equal(t, http.StatusConflict, status)

	status, _, body = ts.get(t, fmt.Sprintf("/v1/posts/%d/likes", postId), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["likes"])
}

func TestReportsPermission(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, ownerToken := registerActivatedUser(t, app, db, "owner")
	reporterId, reporterToken := registerActivatedUser(t, app, db, "reporter")

	status, _, body := ts.post(t, "/v1/blogs", map[string]any{"title": "Open Blog", "slug": "open-blog"}, &ownerToken)
	require.Equal(t, http.StatusCreated, status)
	blogId := int(body["blog"].(map[string]any)["id"].(float64))

	status, _, body = ts.post(t, "/v1/posts", map[string]any{
		"blog_id": blogId,
		"title":   "Spam",
		"slug":    "spam",
		"content": "buy now",
	}, &ownerToken)
	require.Equal(t, http.StatusCreated, status)
	postId := int(body["post"].(map[string]any)["id"].(float64))

	status, _, _ = ts.post(t, fmt.Sprintf("/v1/posts/%d/reports", postId), map[string]any{"reason": "spam"}, &reporterToken)
	assert.Equal(t, http.StatusCreated, status)

	// listing reports needs the reports:read permission
	status, _, _ = ts.get(t, "/v1/reports", &reporterToken)
	assert.Equal(t, http.StatusForbidden, status)

	_, err := db.Exec("INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2)", reporterId, userservice.PermissionReadReports)
	require.NoError(t, err)

	// permissions are cached per token; cycle the session for a fresh lookup
	err = app.userService.LogoutUser(context.Background(), reporterId)
	require.NoError(t, err)
	token, err := app.userService.LoginUser(context.Background(), "reporter", "Test_1234!")
	require.NoError(t, err)

	status, _, body = ts.get(t, "/v1/reports", &token.AccessTokenPlain)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["reports"].([]any), 1)
}
