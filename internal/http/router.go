package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-editor/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-editor/internal/http/middleware"
	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	CourseHandler   *httpH.CourseHandler
	EditHandler     *httpH.EditHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Course
		if cfg.CourseHandler != nil {
			api.GET("/course", cfg.CourseHandler.GetCourse)
			api.POST("/course/select", cfg.CourseHandler.SelectClass)
			api.POST("/course/publish", cfg.CourseHandler.Publish)
			api.POST("/classes/:id/slides", cfg.CourseHandler.AddSlide)
		}

		// Edit session
		if cfg.EditHandler != nil {
			api.POST("/classes/:id/edit", cfg.EditHandler.EnterClassEdit)
			api.POST("/edit/title", cfg.EditHandler.SetTitle)
			api.POST("/edit/concepts", cfg.EditHandler.AddConcept)
			api.DELETE("/edit/concepts/:index", cfg.EditHandler.RemoveConcept)
			api.POST("/edit/commit", cfg.EditHandler.Commit)
			api.POST("/edit/cancel", cfg.EditHandler.Cancel)

			api.POST("/classes/:id/slides/:slideId/edit", cfg.EditHandler.EnterSlideEdit)
			api.PATCH("/edit/slide", cfg.EditHandler.SetSlideField)
			api.POST("/edit/slide/commit", cfg.EditHandler.CommitSlide)
			api.POST("/edit/slide/cancel", cfg.EditHandler.CancelSlide)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/events", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
