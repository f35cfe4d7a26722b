package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"issue-guardian/cmd/api/handlers"
	"issue-guardian/cmd/api/services"
	"issue-guardian/db"
	_ "issue-guardian/docs"
)

func New(issueSvc *services.IssueService, reviewSvc *services.ReviewService) *gin.Engine {
	r := gin.Default()

	// Health check
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// v1 routes
	api := r.Group("/api/v1")
	{
		api.POST("/issues", handlers.CreateIssueHandler(issueSvc))
		api.GET("/issues/:id", handlers.GetIssueHandler(issueSvc))
		api.GET("/issues/:id/logs", handlers.ListIssueLogsHandler(issueSvc))
		api.POST("/issues/:id/feedback", handlers.ApplyFeedbackHandler(reviewSvc))

		api.GET("/dashboard/pending-reviews", handlers.PendingReviewsHandler(reviewSvc))
		api.POST("/dashboard/webhooks/retry", handlers.RetryWebhooksHandler(reviewSvc))
		api.GET("/dashboard/webhooks/pending", handlers.ListPendingDeliveriesHandler(reviewSvc))
	}

	return r
}
