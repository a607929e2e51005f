// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "clipshare/docs" // swagger docs
	"clipshare/internal/bootstrap"
	"clipshare/internal/cache"
	"clipshare/internal/config"
	"clipshare/internal/database"
	"clipshare/internal/featureflags"
	"clipshare/internal/identity"
	"clipshare/internal/media"
	"clipshare/internal/middleware"
	"clipshare/internal/models"
	"clipshare/internal/repository"
	"clipshare/internal/service"
	"clipshare/internal/token"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Login and registration share this per-client budget.
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	tokens         *token.Service
	media          *media.Store
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	featureFlags   *featureflags.Manager
	authService    *service.AuthService
	userService    *service.UserService
	postService    *service.PostService
	commentService *service.CommentService
	googleService  *service.GoogleService
	setup          *bootstrap.Setup
}

// Option customizes a Server built by NewServerWithDeps.
type Option func(*options)

type options struct {
	provider   service.IdentityProvider
	bcryptCost int
}

// WithIdentityProvider replaces the Google client built from configuration.
func WithIdentityProvider(p service.IdentityProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcryptCost = cost }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	o := options{bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}

	tokens, err := token.NewService(cfg.JWTSecret,
		token.WithIssuer(cfg.JWTIssuer),
		token.WithTTL(cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	store, err := media.NewStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("clipshare-api"),
		tokens:         tokens,
		media:          store,
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags, featureflags.Defaults(cfg.Env)),
	}

	view := service.NewRelationshipView(s.userRepo)
	s.authService = service.NewAuthService(s.userRepo, tokens, view, o.bcryptCost, func() bool {
		return s.featureFlags.On(featureflags.AdminSignup)
	})
	s.userService = service.NewUserService(s.userRepo, view, store)
	s.postService = service.NewPostService(s.postRepo, s.userRepo, view, store)
	s.commentService = service.NewCommentService(s.commentRepo, s.postService)
	s.setup = bootstrap.NewSetup(s.userRepo, s.postRepo, bootstrap.DefaultFixture(), o.bcryptCost)

	provider := o.provider
	if provider == nil && cfg.GoogleClientID != "" {
		g, err := identity.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			return nil, fmt.Errorf("google client: %w", err)
		}
		provider = g
	}
	if provider != nil {
		s.googleService = service.NewGoogleService(s.userRepo, provider, s.authService)
	}

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Tracing runs before ContextMiddleware so the trace id reaches the request context
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers; media is embedded cross-origin by the web client
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS must run before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, " + middleware.HeaderAccessToken + ", " + middleware.HeaderRefreshToken,
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	max := s.config.RateLimitPerMinute
	if max <= 0 {
		return
	}
	app.Use(limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.Envelope{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/media", s.media.Root(), fiber.Static{MaxAge: 3600})

	api := app.Group("/api/v1")
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/setup", s.requireFlag(featureflags.SetupEndpoint), s.Setup)

	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(s.redis, authRateLimit, authRateWindow, "login"), s.Login)
	auth.Post("/register", middleware.RateLimit(s.redis, authRateLimit, authRateWindow, "register"), s.Register)
	auth.Post("/refresh", s.Refresh)

	google := api.Group("/google", s.requireFlag(featureflags.GoogleLogin))
	google.Get("/authURL/client", s.GoogleAuthURL)
	google.Post("/login", middleware.RateLimit(s.redis, authRateLimit, authRateWindow, "google-login"), s.GoogleLogin)

	// The public feed is registered before the guarded group so it never reaches the gate.
	api.Get("/post", s.GetPosts)

	gate := middleware.AuthGate(s.tokens, s.userRepo)

	posts := api.Group("/post", gate)
	posts.Get("/following/post", s.GetFollowingPosts)
	posts.Get("/search/tag", s.SearchPostsByTag)
	posts.Get("/search", s.SearchPosts)
	posts.Get("/:postId/one", s.GetPost)
	posts.Get("/:postId/comments", s.GetComments)
	posts.Post("/", s.UploadVideo)
	posts.Post("/post_data", s.SetPostData)
	posts.Post("/:postId/like", s.LikePost)
	posts.Patch("/:postId/like", s.UnlikePost)
	posts.Patch("/:postId/post_privacy", s.ChangePostPrivacy)
	posts.Post("/:postId/post_commenting", s.ChangePostCommenting)
	posts.Patch("/:postId/view", s.AddPostView)
	posts.Post("/:postId/comments", s.AddComment)
	posts.Delete("/:postId/comments/:commentId", s.DeleteComment)
	posts.Post("/:postId", s.AddPostView)
	posts.Delete("/:postId", s.DeletePost)

	users := api.Group("/user", gate)
	users.Get("/", s.GetMe)
	users.Get("/users", s.AdminRequired(), s.GetUsers)
	users.Get("/search", s.SearchUsers)
	users.Get("/:username/one", s.GetUserByUsername)
	users.Post("/:userId/follow", s.FollowUser)
	users.Delete("/:userId/follow", s.UnfollowUser)
	users.Patch("/profile_picture", s.ChangeProfilePicture)
	users.Patch("/liked_video_status", s.ChangeLikedVideosStatus)
	users.Patch("/bio", s.UpdateBio)

	admin := api.Group("/admin", gate, s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	// Redis only backs caching and rate limits, so it does not gate readiness.
	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired rejects principals without the admin role.
// Must be placed after the auth gate.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := middleware.CurrentUser(c)
		if user == nil || user.Role != models.RoleAdmin {
			return models.NewPolicyDeniedError(repository.MsgInvalidRequest)
		}
		return c.Next()
	}
}

// requireFlag hides a route group behind a feature flag.
func (s *Server) requireFlag(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.On(name) {
			return fiber.ErrNotFound
		}
		return c.Next()
	}
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "ClipShare API",
		BodyLimit:    s.config.MaxUploadBytes(),
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()
	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
