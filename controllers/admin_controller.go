package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/models"
	apperrors "github.com/akshay-since1987/kineticev-sub002/pkg/errors"
	"github.com/akshay-since1987/kineticev-sub002/repository"
	"github.com/akshay-since1987/kineticev-sub002/services"
)

type TransactionReader interface {
	FindByTxnID(ctx context.Context, txnID string) (*models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int64, error)
}

type CityAdmin interface {
	List(ctx context.Context) ([]models.AllowedCity, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

// AdminController serves the JSON API behind the admin dashboard. Errors are
// pushed with c.Error and rendered by apperrors.ErrorMiddleware.
type AdminController struct {
	txns     TransactionReader
	cities   CityAdmin
	resolver StatusResolver
	logger   *zap.Logger
}

func NewAdminController(txns TransactionReader, cities CityAdmin, resolver StatusResolver, logger *zap.Logger) *AdminController {
	return &AdminController{txns: txns, cities: cities, resolver: resolver, logger: logger}
}

// parsePaginationParams extracts page/limit; out-of-range values fall back
// to the filter defaults.
func parsePaginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

// ListTransactions handles GET /admin/api/transactions
func (ac *AdminController) ListTransactions(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	filter := models.TransactionFilter{
		Status:   strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Page:     page,
		PageSize: limit,
	}
	if filter.Status != "" && filter.Status != models.StatusPending && !models.IsTerminal(filter.Status) {
		_ = c.Error(apperrors.New(http.StatusBadRequest, "Unknown status filter", nil))
		return
	}
	filter.Normalize()

	txns, total, err := ac.txns.List(c.Request.Context(), filter)
	if err != nil {
		ac.logger.Error("failed to list transactions", zap.Error(err))
		_ = c.Error(apperrors.Wrap(apperrors.ErrDatabaseQuery, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.PageSize,
	})
}

// GetTransaction handles GET /admin/api/transactions/:txnid
func (ac *AdminController) GetTransaction(c *gin.Context) {
	txn, err := ac.txns.FindByTxnID(c.Request.Context(), c.Param("txnid"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = c.Error(apperrors.Wrap(apperrors.ErrNotFound, err))
			return
		}
		_ = c.Error(apperrors.Wrap(apperrors.ErrDatabaseQuery, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": txn})
}

// Recheck handles POST /admin/api/transactions/:txnid/recheck
func (ac *AdminController) Recheck(c *gin.Context) {
	txnID := c.Param("txnid")
	res, err := ac.resolver.Resolve(c.Request.Context(), txnID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			_ = c.Error(apperrors.Wrap(apperrors.ErrNotFound, err))
		case errors.Is(err, services.ErrPersistence):
			_ = c.Error(apperrors.Wrap(apperrors.ErrDatabaseQuery, err))
		default:
			_ = c.Error(apperrors.Wrap(apperrors.ErrBadGateway, err))
		}
		return
	}

	ac.logger.Info("admin recheck", zap.String("txn_id", txnID), zap.String("state", res.State), zap.String("admin", c.GetString("userID")))
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"txn_id":      res.TxnID,
		"state":       res.State,
		"gateway_raw": res.GatewayRaw,
		"changed":     res.Changed,
		"transaction": res.Transaction,
	})
}

// ListCities handles GET /admin/api/cities
func (ac *AdminController) ListCities(c *gin.Context) {
	cities, err := ac.cities.List(c.Request.Context())
	if err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrDatabaseQuery, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cities": cities, "count": len(cities)})
}

type setCityActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetCityActive handles PATCH /admin/api/cities/:id
func (ac *AdminController) SetCityActive(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		_ = c.Error(apperrors.New(http.StatusBadRequest, "Invalid city id", err))
		return
	}
	var req setCityActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.New(http.StatusBadRequest, "is_active is required", err))
		return
	}

	if err := ac.cities.SetActive(c.Request.Context(), uint(id), *req.IsActive); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = c.Error(apperrors.Wrap(apperrors.ErrNotFound, err))
			return
		}
		_ = c.Error(apperrors.Wrap(apperrors.ErrDatabaseQuery, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "is_active": *req.IsActive})
}
