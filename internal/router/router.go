package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/lifequest/api/handler"
)

type Handlers struct {
	Profile     *apiHandler.ProfileHandler
	Task        *apiHandler.TaskHandler
	Completion  *apiHandler.CompletionHandler
	Leaderboard *apiHandler.LeaderboardHandler
	Analytics   *apiHandler.AnalyticsHandler
	Health      *apiHandler.HealthHandler
	// Metrics is optional; /metrics is only mounted when set.
	Metrics fasthttp.RequestHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", handlers.Metrics)
	}

	// Protected routes
	r.GET("/api/v1/profile", authMiddleware(handlers.Profile.GetProfile))
	r.PUT("/api/v1/profile", authMiddleware(handlers.Profile.UpdateProfile))

	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))
	r.POST("/api/v1/tasks/{id}/complete", authMiddleware(handlers.Completion.Complete))

	r.GET("/api/v1/leaderboard", authMiddleware(handlers.Leaderboard.Get))
	r.GET("/api/v1/analytics/overview", authMiddleware(handlers.Analytics.Overview))

	return r
}
