package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/blurblog/blur/internal/userservice"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)

	// user service
	router.HandlerFunc(http.MethodPost, "/v1/users/register", app.registerUserHandler)
	router.HandlerFunc(http.MethodPut, "/v1/users/activate", app.activateUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/login", app.loginUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/logout", app.requireAuthUser(app.logoutUserHandler))

	// blogs
	router.HandlerFunc(http.MethodGet, "/v1/blogs", app.listBlogsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/blogs", app.requirePermission(app.createBlogHandler, userservice.PermissionWriteBlog))
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id", app.getBlogHandler)
	router.HandlerFunc(http.MethodPut, "/v1/blogs/:id", app.requirePermission(app.updateBlogHandler, userservice.PermissionWriteBlog))
	router.HandlerFunc(http.MethodDelete, "/v1/blogs/:id", app.requirePermission(app.deleteBlogHandler, userservice.PermissionWriteBlog))
	router.HandlerFunc(http.MethodPut, "/v1/blogs/:id/logo", app.requirePermission(app.updateBlogLogoHandler, userservice.PermissionWriteBlog))
	router.HandlerFunc(http.MethodPost, "/v1/blogs/:id/authors", app.requirePermission(app.addAuthorHandler, userservice.PermissionWriteBlog))
	router.HandlerFunc(http.MethodDelete, "/v1/blogs/:id/authors", app.requirePermission(app.removeAuthorHandler, userservice.PermissionWriteBlog))
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id/subscribers", app.requireActivatedUser(http.HandlerFunc(app.getSubscribersHandler)))
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id/subscribe-requests", app.requireActivatedUser(http.HandlerFunc(app.getPendingRequestsHandler)))

	// posts
	router.HandlerFunc(http.MethodGet, "/v1/posts", app.listPostsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/posts", app.requirePermission(app.createPostHandler, userservice.PermissionWriteBlog))
	router.HandlerFunc(http.MethodGet, "/v1/posts/:id", app.getPostHandler)
	router.HandlerFunc(http.MethodPut, "/v1/posts/:id", app.requirePermission(app.updatePostHandler, userservice.PermissionWriteBlog))
	router.HandlerFunc(http.MethodDelete, "/v1/posts/:id", app.requirePermission(app.deletePostHandler, userservice.PermissionWriteBlog))

	// comments
	router.HandlerFunc(http.MethodGet, "/v1/posts/:id/comments", app.getCommentsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/posts/:id/comments", app.requireActivatedUser(http.HandlerFunc(app.createCommentHandler)))
	router.HandlerFunc(http.MethodDelete, "/v1/comments/:id", app.requireActivatedUser(http.HandlerFunc(app.deleteCommentHandler)))

	// membership workflow
	router.HandlerFunc(http.MethodPost, "/v1/subscribe-requests", app.requireActivatedUser(http.HandlerFunc(app.submitSubscribeRequestHandler)))
	router.HandlerFunc(http.MethodPatch, "/v1/subscribe-requests/:id", app.requireActivatedUser(http.HandlerFunc(app.resolveSubscribeRequestHandler)))

	// engagement
	router.HandlerFunc(http.MethodGet, "/v1/posts/:id/likes", app.countLikesHandler)
	router.HandlerFunc(http.MethodPost, "/v1/posts/:id/likes", app.requireActivatedUser(http.HandlerFunc(app.likePostHandler)))
	router.HandlerFunc(http.MethodDelete, "/v1/posts/:id/likes", app.requireActivatedUser(http.HandlerFunc(app.unlikePostHandler)))
	router.HandlerFunc(http.MethodPost, "/v1/comments/:id/likes", app.requireActivatedUser(http.HandlerFunc(app.likeCommentHandler)))
	router.HandlerFunc(http.MethodPost, "/v1/posts/:id/saves", app.requireActivatedUser(http.HandlerFunc(app.savePostHandler)))
	router.HandlerFunc(http.MethodDelete, "/v1/posts/:id/saves", app.requireActivatedUser(http.HandlerFunc(app.unsavePostHandler)))
	router.HandlerFunc(http.MethodGet, "/v1/saved-posts", app.requireActivatedUser(http.HandlerFunc(app.getSavedPostsHandler)))
	router.HandlerFunc(http.MethodPost, "/v1/tags/:id/follow", app.requireActivatedUser(http.HandlerFunc(app.followTagHandler)))
	router.HandlerFunc(http.MethodDelete, "/v1/tags/:id/follow", app.requireActivatedUser(http.HandlerFunc(app.unfollowTagHandler)))

	// moderation
	router.HandlerFunc(http.MethodPost, "/v1/posts/:id/reports", app.requireActivatedUser(http.HandlerFunc(app.reportPostHandler)))
	router.HandlerFunc(http.MethodGet, "/v1/reports", app.requirePermission(app.getOpenReportsHandler, userservice.PermissionReadReports))

	return app.recoverPanic(app.rateLimit(app.logRequest(app.authenticate(router))))
}
