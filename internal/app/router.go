package app

import (
	"exam_platform_backend/docs"
	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/middleware"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/me", c.auth.Me)

	// 可参加的试卷
	rg.GET("/exams/published", c.attempt.PublishedExams)

	// 作答:开始/恢复、会话快照、答案保存、交卷、成绩
	rg.POST("/exams/:id/attempts", c.attempt.Start)
	rg.GET("/attempts/:id", c.attempt.State)
	rg.PUT("/attempts/:id/answers/:questionId", c.attempt.SaveAnswer)
	rg.POST("/attempts/:id/visited/:questionId", c.attempt.MarkVisited)
	rg.POST("/attempts/:id/submit", c.attempt.Submit)
	rg.GET("/attempts/:id/result", c.attempt.Result)

	// WebSocket 实时推送:倒计时、保存确认、到时与交卷事件
	rg.GET("/attempts/:id/live", c.attempt.Live)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/")
	teacher.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
	{
		teacher.POST("/exams", c.exam.Create)
		teacher.GET("/exams", c.exam.List)
		teacher.GET("/exams/:id", c.exam.Get)
		teacher.PUT("/exams/:id", c.exam.Update)
		teacher.DELETE("/exams/:id", c.exam.Delete)
		teacher.POST("/exams/:id/publish", c.exam.Publish)

		// 作答与成绩管理
		teacher.GET("/exams/:id/attempts", c.exam.Attempts)
		teacher.GET("/exams/:id/results", c.exam.Results)
	}
}
