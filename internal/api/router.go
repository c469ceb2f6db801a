package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/openlearn/lms-api/internal/api/handler"
	"github.com/openlearn/lms-api/internal/api/middleware"
	"github.com/openlearn/lms-api/internal/core/service"
	"github.com/openlearn/lms-api/internal/infrastructure/config"
	mongorepo "github.com/openlearn/lms-api/internal/infrastructure/db/mongo"
	redisinfra "github.com/openlearn/lms-api/internal/infrastructure/db/redis"
	"github.com/openlearn/lms-api/internal/infrastructure/http/handlers"
	"github.com/openlearn/lms-api/internal/infrastructure/storage"
	"github.com/openlearn/lms-api/pkg/logger"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, assets *storage.AssetStore) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger.Component("api"))

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("lms"))

	// --- Repositories ---
	userRepo := mongorepo.NewUserRepository(db)
	appRepo := mongorepo.NewApplicationRepository(db)
	tokenRepo := mongorepo.NewTokenRepository(db)
	courseRepo := mongorepo.NewCourseRepository(db)
	enrollmentRepo := mongorepo.NewEnrollmentRepository(db)
	submissionRepo := mongorepo.NewSubmissionRepository(db)

	// --- Services ---
	tokenService := service.NewTokenService(service.TokenSettings{
		Audience:                 cfg.JWT.Audience,
		Issuer:                   cfg.JWT.Issuer,
		SecretKey:                cfg.JWT.SecretKey,
		Algorithm:                cfg.JWT.Algorithm,
		PrivateKeyPEM:            cfg.JWT.PrivateKeyPEM,
		IDTokenExpirationSeconds: cfg.JWT.IDTokenExpirationSeconds,
	}, appRepo, userRepo)
	oauthService := service.NewOAuthService(
		userRepo, appRepo, tokenRepo, tokenService,
		cfg.JWT.ExpirationSeconds,
		cfg.OAuth.AutoExpireAuthorizationCode,
		logger.Component("oauth"),
	)
	gradeService := service.NewGradeService(
		userRepo, courseRepo, enrollmentRepo, submissionRepo,
		redisinfra.NewGradeCache(rdb),
		logger.Component("grades"),
	)

	// --- Handlers ---
	tokenHandler := handler.NewTokenHandler(oauthService)
	gradeHandler := handler.NewGradeHandler(gradeService)
	assetHandler := handler.NewAssetHandler(assets)

	// --- OAuth2 token endpoint (no auth required) ---
	e.POST("/oauth2/access_token", tokenHandler.Issue)

	// --- Grades API (bearer-token protected) ---
	grades := e.Group("/api/grades/v0", middleware.Auth(cfg.JWT.SecretKey))
	grades.GET("/course_grade/:course_id/users/", gradeHandler.UserGrade)
	grades.GET("/policy/:course_id/", gradeHandler.Policy)
	grades.POST("/user_grades/", gradeHandler.BulkGrades, middleware.StaffOnly())

	// --- Static assets ---
	e.GET("/static/*", assetHandler.Serve)
	e.POST("/api/assets/v0/", assetHandler.Upload, middleware.Auth(cfg.JWT.SecretKey), middleware.StaffOnly())

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(db, rdb, assets)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
