package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/yqhuang/forumist/internal/userservice"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)

	// httprouter rejects a static segment next to a wildcard in the same
	// method tree, so search and the scoped listings hang off their own
	// prefixes instead of /v1/posts/.

	// user service
	router.HandlerFunc(http.MethodPost, "/v1/users/register", app.registerUserHandler)
	router.HandlerFunc(http.MethodPut, "/v1/users/activate", app.activateUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/login", app.loginUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/logout", app.requireAuthUser(app.logoutUserHandler))
	router.HandlerFunc(http.MethodPut, "/v1/users/avatar", app.requireActivatedUser(http.HandlerFunc(app.updateAvatarHandler)))

	// admin
	router.HandlerFunc(http.MethodGet, "/v1/admin/dashboard", app.requirePermission(app.adminDashboardHandler, userservice.PermissionAdmin))
	router.HandlerFunc(http.MethodGet, "/v1/admin/users", app.requirePermission(app.adminListUsersHandler, userservice.PermissionAdmin))
	router.HandlerFunc(http.MethodDelete, "/v1/admin/users/:id", app.requirePermission(app.adminDeleteUserHandler, userservice.PermissionAdmin))
	router.HandlerFunc(http.MethodPost, "/v1/admin/users/:id/reset-password", app.requirePermission(app.resetPasswordHandler, userservice.PermissionAdmin))

	// post service
	router.HandlerFunc(http.MethodGet, "/v1/posts", app.listPostsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/posts/new", app.requirePermission(app.createPostHandler, userservice.PermissionWritePost))
	router.HandlerFunc(http.MethodGet, "/v1/search/posts", app.searchPostsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/posts/:id", app.getPostHandler)
	router.HandlerFunc(http.MethodPut, "/v1/posts/:id", app.requirePermission(app.updatePostHandler, userservice.PermissionWritePost))
	router.HandlerFunc(http.MethodDelete, "/v1/posts/:id", app.requirePermission(app.deletePostHandler, userservice.PermissionWritePost))
	router.HandlerFunc(http.MethodGet, "/v1/users/:id/posts", app.listPostsByAuthorHandler)
	router.HandlerFunc(http.MethodGet, "/v1/categories/:id/posts", app.listPostsByCategoryHandler)

	// category service
	router.HandlerFunc(http.MethodGet, "/v1/categories", app.listCategoriesHandler)
	router.HandlerFunc(http.MethodGet, "/v1/categories/:id", app.getCategoryHandler)
	router.HandlerFunc(http.MethodPost, "/v1/categories/new", app.requirePermission(app.createCategoryHandler, userservice.PermissionAdmin))
	router.HandlerFunc(http.MethodPut, "/v1/categories/:id", app.requirePermission(app.updateCategoryHandler, userservice.PermissionAdmin))
	router.HandlerFunc(http.MethodDelete, "/v1/categories/:id", app.requirePermission(app.deleteCategoryHandler, userservice.PermissionAdmin))

	// comment service
	router.HandlerFunc(http.MethodGet, "/v1/posts/:id/comments", app.listCommentsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/comments/new", app.requirePermission(app.createCommentHandler, userservice.PermissionWriteComment))
	router.HandlerFunc(http.MethodPut, "/v1/comments/:id", app.requirePermission(app.updateCommentHandler, userservice.PermissionWriteComment))
	router.HandlerFunc(http.MethodDelete, "/v1/comments/:id", app.requirePermission(app.deleteCommentHandler, userservice.PermissionWriteComment))

	return app.recoverPanic(app.enableCORS(app.rateLimit(app.logRequest(app.authenticate(router)))))
}
