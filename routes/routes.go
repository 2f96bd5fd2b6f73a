package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akshay-since1987/kineticev-sub002/controllers"
	"github.com/akshay-since1987/kineticev-sub002/middleware"
	apperrors "github.com/akshay-since1987/kineticev-sub002/pkg/errors"
)

// RegisterPaymentRoutes sets up the browser-facing booking and payment
// routes plus the gateway webhook.
func RegisterPaymentRoutes(r *gin.Engine, bc *controllers.BookingController, pc *controllers.PaymentController) {
	r.POST("/book-now", bc.Submit)
	r.POST("/api/booking", bc.Submit)

	r.GET("/payment/status", pc.Status)
	r.POST("/payment/status", pc.Status)

	// Server-to-server; authenticated by the webhook credentials.
	r.POST("/api/payment/webhook", pc.Webhook)
}

// RegisterPublicAPIRoutes sets up the JSON endpoints the marketing site
// calls. OTP and distance lookups cost an upstream call each and share the
// per-IP limiter.
func RegisterPublicAPIRoutes(
	r *gin.Engine,
	dc *controllers.DistanceController,
	oc *controllers.OTPController,
	tc *controllers.TestRideController,
	allowedOrigins []string,
	limiter *middleware.RateLimiter,
) {
	api := r.Group("/api")
	api.Use(middleware.CORS(allowedOrigins))

	api.GET("/get-allowed-cities.php", dc.AllowedCities)
	api.GET("/allowed-cities", dc.AllowedCities)
	api.POST("/submit-test-drive.php", tc.Submit)

	limited := api.Group("")
	limited.Use(middleware.RateLimit(limiter))
	limited.GET("/distance-check", dc.Check)
	limited.POST("/generate-otp.php", oc.Generate)
	limited.POST("/verify-otp.php", oc.Verify)
}

// RegisterAdminRoutes sets up the JWT-protected admin API.
func RegisterAdminRoutes(r *gin.Engine, ac *controllers.AdminController, jwtSecret []byte) {
	admin := r.Group("/admin/api")
	admin.Use(apperrors.ErrorMiddleware(), middleware.AdminAuth(jwtSecret))

	admin.GET("/transactions", ac.ListTransactions)
	admin.GET("/transactions/:txnid", ac.GetTransaction)
	admin.POST("/transactions/:txnid/recheck", ac.Recheck)
	admin.GET("/cities", ac.ListCities)
	admin.PATCH("/cities/:id", ac.SetCityActive)
}

// RegisterOpsRoutes exposes health and Prometheus metrics.
func RegisterOpsRoutes(r *gin.Engine, hc *controllers.HealthController) {
	r.GET("/health", hc.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	})
}
