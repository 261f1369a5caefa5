package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/config"
	"github.com/noah-isme/lms-api/pkg/logger"
	"github.com/noah-isme/lms-api/pkg/middleware/cors"
	"github.com/noah-isme/lms-api/pkg/middleware/requestid"
)

// Dependencies groups everything the router needs.
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Courses     *handler.CourseHandler
	Enrollments *handler.EnrollmentHandler
	Products    *handler.ProductHandler
	Verifier    middleware.TokenVerifier
	Metrics     *service.MetricsService
}

// New builds the gin engine with all routes and middleware wired.
func New(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(cors.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	var authMetrics middleware.AuthMetrics
	if deps.Metrics != nil {
		authMetrics = deps.Metrics
	}
	authed := middleware.JWT(deps.Verifier, authMetrics)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), middleware.AllowSelf)
	instructorOnly := middleware.RequireRoles(models.RoleInstructor)

	// Session endpoints.
	r.POST("/login", deps.Auth.Login)
	r.GET("/current_user", authed, deps.Auth.CurrentUser)
	r.DELETE("/logout", authed, deps.Auth.Logout)

	// Accounts. Registration is open; management is admin territory except
	// that users may read and patch themselves.
	users := r.Group("/users")
	{
		users.POST("", deps.Users.Register)
		users.GET("", authed, adminOnly, deps.Users.List)
		users.GET("/:id", authed, adminOrSelf, deps.Users.Get)
		users.PATCH("/:id", authed, adminOrSelf, deps.Users.Update)
		users.DELETE("/:id", authed, adminOnly, deps.Users.Delete)
	}

	// Courses. Any authenticated account may browse; mutation is admin-only.
	courses := r.Group("/courses", authed)
	{
		courses.GET("", deps.Courses.List)
		courses.GET("/my-courses", instructorOnly, deps.Courses.MyCourses)
		courses.GET("/:id", deps.Courses.Get)
		courses.POST("", adminOnly, deps.Courses.Create)
		courses.PATCH("/:id", adminOnly, deps.Courses.Update)
		courses.DELETE("/:id", adminOnly, deps.Courses.Delete)
	}

	// Enrollments. Students drive their own lifecycle; admins see and prune
	// everything. The pairwise delete checks admin-or-self in the service
	// because the student id comes from the path, not the :id param.
	enrollments := r.Group("/enrollments", authed)
	{
		enrollments.POST("", deps.Enrollments.Enroll)
		enrollments.DELETE("/my-enrollment", deps.Enrollments.Unenroll)
		enrollments.GET("/my-enrollments", deps.Enrollments.MyEnrollments)
		enrollments.GET("", adminOnly, deps.Enrollments.ListAll)
		enrollments.DELETE("/:student_id/:course_id", deps.Enrollments.Remove)
	}
	r.GET("/enrolled-students", authed, adminOnly, deps.Enrollments.EnrolledStudents)

	// Products. Reads are public; mutation requires a token and ownership is
	// enforced in the service.
	products := r.Group("/products")
	{
		products.GET("", deps.Products.List)
		products.GET("/:id", deps.Products.Get)
		products.POST("", authed, deps.Products.Create)
		products.PATCH("/:id", authed, deps.Products.Update)
		products.DELETE("/:id", authed, deps.Products.Delete)
	}

	return r
}
