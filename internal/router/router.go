package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/config"
	"github.com/noah-isme/edudash-api/internal/handler"
	"github.com/noah-isme/edudash-api/internal/middleware"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Tokens              *auth.Tokens
	Resolver            auth.RoleResolver
	Logger              zerolog.Logger
	AuthHandler         *handler.AuthHandler
	SchoolHandler       *handler.SchoolHandler
	BatchHandler        *handler.BatchHandler
	MemberHandler       *handler.MemberHandler
	SessionHandler      *handler.SessionHandler
	AttendanceHandler   *handler.AttendanceHandler
	ReportHandler       *handler.ReportHandler
	NotificationHandler *handler.NotificationHandler
	OverviewHandler     *handler.OverviewHandler
	ActivityHandler     *handler.ActivityHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.AuthHandler != nil {
		api.Post("/auth/login", middleware.RateLimit("login", cfg.LoginRateLimit, time.Minute), deps.AuthHandler.Login)
	}

	authenticated := func(roles ...string) []fiber.Handler {
		chain := []fiber.Handler{
			middleware.JWTProtected(deps.Tokens),
			middleware.ResolveSession(deps.Resolver, deps.Logger),
		}
		if len(roles) > 0 {
			chain = append(chain, middleware.RequireRole(roles...))
		}
		return chain
	}

	if deps.AuthHandler != nil {
		api.Get("/auth/me", append(authenticated(), deps.AuthHandler.Me)...)
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", authenticated()...))
	}
	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.RegisterLive(api.Group("/attendance"), authenticated(models.RoleAdmin, models.RoleTeacher)...)
	}

	admin := api.Group("/admin", authenticated(models.RoleAdmin)...)
	if deps.OverviewHandler != nil {
		admin.Get("/overview", deps.OverviewHandler.Overview)
	}
	if deps.AuthHandler != nil {
		admin.Post("/accounts", deps.AuthHandler.CreateAccount)
	}
	if deps.SchoolHandler != nil {
		deps.SchoolHandler.Register(admin.Group("/schools"))
	}
	if deps.BatchHandler != nil {
		deps.BatchHandler.Register(admin.Group("/batches"))
	}
	if deps.MemberHandler != nil {
		for _, kind := range []string{models.KindStudents, models.KindTeachers, models.KindSMEs} {
			deps.MemberHandler.Register(admin.Group("/"+kind), kind)
		}
	}
	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(admin.Group("/sessions"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.RegisterAdmin(admin.Group("/notifications"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.RegisterGrid(admin.Group("/attendance"))
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(admin.Group("/reports"), true)
	}

	teacher := api.Group("/teacher", authenticated(models.RoleTeacher)...)
	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterTeacher(teacher.Group("/sessions"))
	}
	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.RegisterGrid(teacher.Group("/attendance"))
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(teacher.Group("/reports"), false)
	}

	schoolAdmin := api.Group("/school-admin", authenticated(models.RoleSchoolAdmin)...)
	if deps.MemberHandler != nil {
		deps.MemberHandler.RegisterSchoolStudents(schoolAdmin.Group("/students"))
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(schoolAdmin.Group("/reports"), false)
	}

	for prefix, role := range map[string]string{"/student": models.RoleStudent, "/sme": models.RoleSME} {
		group := api.Group(prefix, authenticated(role)...)
		if deps.AttendanceHandler != nil {
			deps.AttendanceHandler.RegisterHistory(group)
		}
		if deps.SessionHandler != nil {
			deps.SessionHandler.RegisterReadOnly(group.Group("/sessions"))
		}
	}
}
