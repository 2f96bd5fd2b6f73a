package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akshay-since1987/kineticev-sub002/services"
)

type OTPIssuer interface {
	Generate(ctx context.Context, phone, purpose string) (*services.OTPIssued, *services.ServiceError)
	Verify(ctx context.Context, phone, code, purpose string) *services.ServiceError
}

type OTPController struct {
	otp OTPIssuer
}

func NewOTPController(otp OTPIssuer) *OTPController {
	return &OTPController{otp: otp}
}

type generateOTPRequest struct {
	Phone   string `form:"phone" json:"phone" binding:"required"`
	Purpose string `form:"purpose" json:"purpose" binding:"required"`
}

type verifyOTPRequest struct {
	Phone   string `form:"phone" json:"phone" binding:"required"`
	OTP     string `form:"otp" json:"otp" binding:"required"`
	Purpose string `form:"purpose" json:"purpose" binding:"required"`
}

// Generate handles POST /api/generate-otp.php
func (oc *OTPController) Generate(c *gin.Context) {
	var req generateOTPRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Phone and purpose are required"})
		return
	}

	issued, svcErr := oc.otp.Generate(c.Request.Context(), req.Phone, req.Purpose)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"success": false, "message": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent successfully", "expires_in": issued.ExpiresIn})
}

// Verify handles POST /api/verify-otp.php
func (oc *OTPController) Verify(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Phone, OTP and purpose are required"})
		return
	}

	if svcErr := oc.otp.Verify(c.Request.Context(), req.Phone, req.OTP, req.Purpose); svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"success": false, "message": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP verified successfully"})
}
