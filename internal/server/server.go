package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/taskly/taskly-api/internal/config"
	apierrors "github.com/taskly/taskly-api/internal/errors"
	"github.com/taskly/taskly-api/internal/handlers"
	"github.com/taskly/taskly-api/internal/middleware"
	"github.com/taskly/taskly-api/internal/repository"
	"github.com/taskly/taskly-api/internal/services"
	"github.com/taskly/taskly-api/internal/token"
	"gorm.io/gorm"
)

// Services bundles what the router needs.
type Services struct {
	Auth        *services.AuthService
	Tasks       *services.TaskService
	Suggestions *services.SuggestionService
}

// NewServices wires repositories and services on top of db.
func NewServices(cfg *config.Config, db *gorm.DB) Services {
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	tokens := token.NewManager(token.Config{
		SecretKey: cfg.JWTSecret,
		TTL:       cfg.TokenTTL,
	})

	return Services{
		Auth:  services.NewAuthService(userRepo, tokens),
		Tasks: services.NewTaskService(taskRepo),
		Suggestions: services.NewSuggestionService(services.SuggestionConfig{
			APIKey:  cfg.AIAPIKey,
			BaseURL: cfg.AIBaseURL,
			Model:   cfg.AIModel,
			Retry: services.RetryPolicy{
				MaxRetries: cfg.AIMaxRetries,
				BaseDelay:  cfg.AIRetryBaseDelay,
			},
		}),
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg *config.Config, svc Services, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(logger))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "error", recovered, "path", c.Request.URL.Path)
		apierrors.InternalError(c, "")
	}))
	r.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins, cfg.AuthHeader)))
	r.NoRoute(func(c *gin.Context) {
		apierrors.NotFound(c, "Route not found")
	})

	authHandler := handlers.NewAuthHandler(svc.Auth)
	taskHandler := handlers.NewTaskHandler(svc.Tasks, svc.Suggestions)
	requireAuth := middleware.RequireAuth(svc.Auth, cfg.AuthHeader)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Taskly API is running",
		})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/stats", taskHandler.GetStats)
			tasks.POST("/suggest", taskHandler.SuggestSubtasks)
			tasks.GET("/:id", middleware.RequireTaskID(), taskHandler.GetTask)
			tasks.PUT("/:id", middleware.RequireTaskID(), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskID(), taskHandler.DeleteTask)
		}
	}

	return r
}

func corsConfig(origins []string, authHeader string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", authHeader)
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
}

// New constructs a Server listening on cfg.Port.
func New(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
