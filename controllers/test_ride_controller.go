package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/services"
)

type TestRideSubmitter interface {
	Submit(ctx context.Context, req *services.TestRideRequest) (*models.TestRide, *services.ServiceError)
}

type TestRideController struct {
	rides  TestRideSubmitter
	logger *zap.Logger
}

func NewTestRideController(rides TestRideSubmitter, logger *zap.Logger) *TestRideController {
	return &TestRideController{rides: rides, logger: logger}
}

// Submit handles POST /api/submit-test-drive.php with a form or JSON body.
func (tc *TestRideController) Submit(c *gin.Context) {
	var req services.TestRideRequest
	if err := c.ShouldBind(&req); err != nil {
		tc.logger.Debug("test ride bind failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}

	ride, svcErr := tc.rides.Submit(c.Request.Context(), &req)
	if svcErr != nil {
		resp := gin.H{"success": false, "message": svcErr.Message}
		if len(svcErr.Errors) > 0 {
			resp["errors"] = svcErr.Errors
		}
		c.JSON(svcErr.StatusCode, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Thank you! Our team will contact you shortly to confirm your test ride.",
		"id":      ride.ID.String(),
	})
}
