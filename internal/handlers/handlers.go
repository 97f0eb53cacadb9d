package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"campusbus/identity/internal/config"
	"campusbus/identity/internal/identifier"
	"campusbus/identity/internal/kv"
	"campusbus/identity/internal/middleware"
	"campusbus/identity/internal/models"
	"campusbus/identity/internal/repository"
	"campusbus/identity/internal/service"
	"campusbus/identity/internal/session"
)

type Dependencies struct {
	Config        *config.AppConfig
	Log           zerolog.Logger
	Store         kv.Store
	Classifier    *identifier.Classifier
	Users         *repository.UserRepository
	Auth          *service.AuthService
	Sessions      *session.Manager
	Resets        *service.ResetService
	Registrations *service.RegistrationService
	Backups       *service.BackupService
}

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	store         kv.Store
	classifier    *identifier.Classifier
	users         *repository.UserRepository
	auth          *service.AuthService
	sessions      *session.Manager
	resets        *service.ResetService
	registrations *service.RegistrationService
	backups       *service.BackupService
}

func NewHandlerSet(deps Dependencies) HandlerSet {
	classifier := deps.Classifier
	if classifier == nil {
		classifier = identifier.New(nil, nil)
	}
	return HandlerSet{
		log:           deps.Log,
		cfg:           deps.Config,
		store:         deps.Store,
		classifier:    classifier,
		users:         deps.Users,
		auth:          deps.Auth,
		sessions:      deps.Sessions,
		resets:        deps.Resets,
		registrations: deps.Registrations,
		backups:       deps.Backups,
	}
}

// logger prefers the request-scoped logger so entries carry the request id.
func (h HandlerSet) logger(c *gin.Context) *zerolog.Logger {
	return middleware.LoggerFrom(c, h.log)
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/identity/detect", h.DetectRole)

		auth := v1.Group("/auth")
		auth.POST("/login", h.Login)
		auth.POST("/register/student", h.RegisterStudent)
		auth.POST("/register/staff", h.RegisterStaff)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.GET("/reset-password/validate", h.ValidateResetToken)
		auth.POST("/reset-password", h.ResetPassword)

		protected := v1.Group("/auth")
		protected.Use(middleware.Auth(h.sessions, h.log))
		protected.GET("/me", h.Me)
		protected.POST("/logout", h.Logout)
	}

	admin := v1.Group("/admin")
	admin.Use(
		middleware.Auth(h.sessions, h.log),
		middleware.RequireRoles(models.RoleAdmin),
	)
	admin.GET("/users/report", h.AdminUsersReport)
	admin.POST("/users/seed", h.AdminSeedUsers)
	admin.DELETE("/users", h.AdminClearUsers)
	admin.POST("/users/backup", h.AdminBackupUsers)
}
