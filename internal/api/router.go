package api

import "github.com/gin-gonic/gin"

// NewRouter builds the gin engine with all operator-facing routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.HealthHandler)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/requests", s.ListRequestsHandler)
		apiGroup.POST("/requests", s.SubmitHandler)
		apiGroup.POST("/requests/:id/resend", s.ResendHandler)
		apiGroup.POST("/requests/:id/retry", s.RetryHandler)
		apiGroup.DELETE("/requests/:id", s.DeleteHandler)

		apiGroup.GET("/sources", s.ListSourcesHandler)
		apiGroup.POST("/reports/trigger", s.TriggerReportHandler)
	}

	return r
}
