package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/vectorprep/session-service/internal/services"
	"github.com/vectorprep/session-service/internal/utils"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	attemptHandler *AttemptHandler
	reportHandler  *ReportHandler
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(serviceManager.Session(), logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), logger),
		reportHandler:  NewReportHandler(serviceManager.Report(), logger),
	}
}

// SetupRoutes sets up all API routes.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("/diagnostic", hm.sessionHandler.StartDiagnostic)
			sessions.POST("/mock", hm.sessionHandler.StartMock)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id/current", hm.attemptHandler.GetCurrent)
			attempts.POST("/:id/answer", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/skip", hm.attemptHandler.Skip)
			attempts.POST("/:id/save-answer", hm.attemptHandler.SaveAnswer)
			attempts.POST("/:id/autosave", hm.attemptHandler.Autosave)
			attempts.POST("/:id/force-complete", hm.attemptHandler.ForceComplete)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.GetTimeRemaining)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/:token", hm.reportHandler.GetReport)
		}
	}
}
