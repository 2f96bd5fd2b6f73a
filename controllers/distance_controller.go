package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/akshay-since1987/kineticev-sub002/services"
)

type DistanceChecker interface {
	Check(ctx context.Context, pincode string) (*services.DistanceResult, *services.ServiceError)
	AllowedCities(ctx context.Context) ([]services.CityView, *services.ServiceError)
}

type DistanceController struct {
	distance DistanceChecker
}

func NewDistanceController(distance DistanceChecker) *DistanceController {
	return &DistanceController{distance: distance}
}

// Check handles GET /api/distance-check?pincode=NNNNNN
func (dc *DistanceController) Check(c *gin.Context) {
	res, svcErr := dc.distance.Check(c.Request.Context(), strings.TrimSpace(c.Query("pincode")))
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"success": false, "message": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, res)
}

// AllowedCities handles GET /api/get-allowed-cities.php and /api/allowed-cities
func (dc *DistanceController) AllowedCities(c *gin.Context) {
	cities, svcErr := dc.distance.AllowedCities(c.Request.Context())
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"success": false, "message": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cities": cities, "count": len(cities)})
}
