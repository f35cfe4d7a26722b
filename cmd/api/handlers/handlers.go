package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"issue-guardian/cmd/api/services"
)

// CreateIssueHandler godoc
// @Summary      Report an issue
// @Description  Store a new issue and enqueue it for moderation
// @Tags         issues
// @Accept       json
// @Param        issue  body  services.CreateIssueInput  true  "Issue to report"
// @Produce      json
// @Success      201  {object}  models.Issue
// @Failure      400  {object}  object{error=string}
// @Router       /issues [post]
func CreateIssueHandler(svc *services.IssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.CreateIssueInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		issue, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, issue)
	}
}

// GetIssueHandler godoc
// @Summary      Get issue by id
// @Tags         issues
// @Param        id   path   string  true  "ObjectID"
// @Produce      json
// @Success      200  {object}  models.Issue
// @Failure      404  {object}  object{error=string}
// @Router       /issues/{id} [get]
func GetIssueHandler(svc *services.IssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		issue, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, issue)
	}
}

// ListIssueLogsHandler godoc
// @Summary      List moderation logs of an issue
// @Tags         issues
// @Param        id     path   string  true   "ObjectID"
// @Param        limit  query  int     false  "Max entries (default 20)"
// @Produce      json
// @Success      200  {array}  models.ModerationLog
// @Failure      400  {object}  object{error=string}
// @Router       /issues/{id}/logs [get]
func ListIssueLogsHandler(svc *services.IssueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
		logs, err := svc.Logs(c.Request.Context(), c.Param("id"), limit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, logs)
	}
}

type feedbackRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

// ApplyFeedbackHandler godoc
// @Summary      Apply a moderator decision
// @Description  Record APPROVE/REJECT on an escalated issue and notify the main backend
// @Tags         issues
// @Accept       json
// @Param        id        path  string           true  "ObjectID"
// @Param        feedback  body  handlers.feedbackRequest  true  "Moderator decision"
// @Produce      json
// @Success      200  {object}  models.Issue
// @Failure      400  {object}  object{error=string}
// @Router       /issues/{id}/feedback [post]
func ApplyFeedbackHandler(svc *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in feedbackRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		issue, err := svc.ApplyFeedback(c.Request.Context(), c.Param("id"), in.Decision, in.Notes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, issue)
	}
}

// PendingReviewsHandler godoc
// @Summary      List issues awaiting human review
// @Tags         dashboard
// @Param        limit  query  int  false  "Max entries (default 50)"
// @Produce      json
// @Success      200  {array}  vectorstore.Match
// @Failure      500  {object}  object{error=string}
// @Router       /dashboard/pending-reviews [get]
func PendingReviewsHandler(svc *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		reviews, err := svc.PendingReviews(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, reviews)
	}
}

// RetryWebhooksHandler godoc
// @Summary      Retry pending webhook deliveries
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  object{succeeded=int,failed=int}
// @Router       /dashboard/webhooks/retry [post]
func RetryWebhooksHandler(svc *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		succeeded, failed := svc.RetryWebhooks(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"succeeded": succeeded, "failed": failed})
	}
}

// ListPendingDeliveriesHandler godoc
// @Summary      List pending webhook deliveries
// @Tags         dashboard
// @Produce      json
// @Success      200  {array}  webhook.PendingDelivery
// @Router       /dashboard/webhooks/pending [get]
func ListPendingDeliveriesHandler(svc *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.PendingDeliveries())
	}
}
