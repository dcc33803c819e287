package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/config"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/middleware"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/models"
	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/service"
)

// Services groups what the handlers call into.
type Services struct {
	Auth     *service.AuthService
	Profile  *service.ProfileService
	Roles    *service.RoleAdmin
	Identity middleware.IdentityResolver
	Tokens   middleware.AccessTokenParser
}

// Pinger is satisfied by *pgxpool.Pool and by the redis adapter in health.go.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	auth    *service.AuthService
	profile *service.ProfileService
	roles   *service.RoleAdmin
	svc     Services
	db      Pinger
	cache   Pinger
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, svc Services, db Pinger, cache Pinger) HandlerSet {
	return HandlerSet{
		log:     log,
		cfg:     cfg,
		auth:    svc.Auth,
		profile: svc.Profile,
		roles:   svc.Roles,
		svc:     svc,
		db:      db,
		cache:   cache,
	}
}

// Routes mounts every endpoint on router.
func (h HandlerSet) Routes(router gin.IRouter) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/remember", h.Remember)
		auth.POST("/logout", h.Logout)
	}

	authed := router.Group("/", middleware.Authenticate(h.svc.Tokens, h.svc.Identity, h.log))
	{
		authed.POST("/auth/logout-all", h.LogoutAll)
		authed.GET("/auth/me", h.Me)
		authed.GET("/auth/sessions", h.ListSessions)
		authed.DELETE("/auth/sessions/:id", h.RevokeSession)
		authed.DELETE("/auth/sessions-bulk", h.BulkRevokeSessions)

		authed.PATCH("/users/me", h.UpdateProfile)
		authed.PUT("/users/me/password", h.ChangePassword)
		authed.PUT("/users/me/avatar", h.UploadAvatar)
	}

	admin := authed.Group("/admin")
	{
		admin.GET("/roles", middleware.RequirePermissions("roles.read"), h.ListRoles)
		admin.POST("/roles", middleware.RequirePermissions("roles.manage"), h.CreateRole)
		admin.DELETE("/roles/:id", middleware.RequirePermissions("roles.manage"), h.DeleteRole)
		admin.PUT("/roles/:id/permissions/:permissionId", middleware.RequirePermissions("roles.manage"), h.AttachPermission)
		admin.DELETE("/roles/:id/permissions/:permissionId", middleware.RequirePermissions("roles.manage"), h.DetachPermission)

		admin.GET("/permissions", middleware.RequirePermissions("roles.read"), h.ListPermissions)
		admin.POST("/permissions", middleware.RequirePermissions("permissions.manage"), h.CreatePermission)

		admin.PUT("/users/:id/role", middleware.RequirePermissions("users.manage"), h.AssignUserRole)
		admin.DELETE("/users/:id/sessions",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.RequirePermissions("sessions.manage"),
			h.RevokeUserSessions,
		)
	}
}
