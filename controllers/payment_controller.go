package controllers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/services"
	"github.com/akshay-since1987/kineticev-sub002/templates"
)

type StatusResolver interface {
	Resolve(ctx context.Context, txnID string) (*services.Resolution, error)
}

// txnIDParams are the parameter names the gateway and older links use for
// the transaction id, in lookup order.
var txnIDParams = []string{"txnid", "transactionId", "merchantOrderId", "orderId", "merchant_order_id", "transaction_id"}

// WebhookCredentials are the username and password configured with the
// gateway for server-to-server callbacks.
type WebhookCredentials struct {
	Username string
	Password string
}

func (w WebhookCredentials) expected() string {
	sum := sha256.Sum256([]byte(w.Username + ":" + w.Password))
	return hex.EncodeToString(sum[:])
}

type PaymentController struct {
	resolver StatusResolver
	renderer *templates.Renderer
	urls     PageURLs
	webhook  WebhookCredentials
	logger   *zap.Logger
}

func NewPaymentController(resolver StatusResolver, renderer *templates.Renderer, urls PageURLs, webhook WebhookCredentials, logger *zap.Logger) *PaymentController {
	return &PaymentController{resolver: resolver, renderer: renderer, urls: urls, webhook: webhook, logger: logger}
}

func txnIDFrom(c *gin.Context) string {
	for _, name := range txnIDParams {
		if v := strings.TrimSpace(c.Query(name)); v != "" {
			return v
		}
		if v := strings.TrimSpace(c.PostForm(name)); v != "" {
			return v
		}
	}
	return ""
}

// Status handles GET and POST /payment/status, the gateway's browser
// redirect target.
func (pc *PaymentController) Status(c *gin.Context) {
	txnID := txnIDFrom(c)
	if txnID == "" {
		renderError(c, pc.renderer, pc.logger, templates.PageMissingTxn, templates.PageData{HomeURL: pc.urls.Home})
		return
	}

	res, err := pc.resolver.Resolve(c.Request.Context(), txnID)
	if err != nil {
		pc.logger.Warn("payment status check failed", zap.String("txn_id", txnID), zap.Error(err))
		renderError(c, pc.renderer, pc.logger, services.ErrorPage(err), templates.PageData{
			TxnID:    txnID,
			RetryURL: statusPath(txnID),
			HomeURL:  pc.urls.Home,
		})
		return
	}

	switch res.State {
	case models.StatusCompleted:
		c.Redirect(http.StatusSeeOther, pc.urls.withTxn(pc.urls.ThankYou, txnID))
	case models.StatusFailed:
		c.Redirect(http.StatusSeeOther, pc.urls.Home)
	default:
		var buf bytes.Buffer
		if err := pc.renderer.Pending(&buf, templates.PageData{TxnID: txnID, RetryURL: statusPath(txnID), HomeURL: pc.urls.Home}); err != nil {
			pc.logger.Error("failed to render pending page", zap.Error(err))
			c.String(http.StatusInternalServerError, "Your payment is still being processed.")
			return
		}
		writeHTML(c, http.StatusOK, &buf)
	}
}

type webhookBody struct {
	MerchantOrderID string `json:"merchantOrderId"`
	Payload         struct {
		MerchantOrderID string `json:"merchantOrderId"`
	} `json:"payload"`
}

// authorized compares the Authorization header with sha256(username:password).
// An unconfigured webhook rejects everything.
func (pc *PaymentController) authorized(header string) bool {
	if pc.webhook.Username == "" || pc.webhook.Password == "" {
		return false
	}
	got := strings.TrimSpace(header)
	if len(got) > 7 && strings.EqualFold(got[:7], "SHA256 ") {
		got = strings.TrimSpace(got[7:])
	}
	got = strings.ToLower(got)
	return subtle.ConstantTimeCompare([]byte(got), []byte(pc.webhook.expected())) == 1
}

// Webhook handles POST /api/payment/webhook. The callback body only names
// the order; its state is always re-read from the gateway.
func (pc *PaymentController) Webhook(c *gin.Context) {
	if !pc.authorized(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	var body webhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payload"})
		return
	}
	txnID := body.MerchantOrderID
	if txnID == "" {
		txnID = body.Payload.MerchantOrderID
	}
	if txnID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "merchantOrderId is required"})
		return
	}

	res, err := pc.resolver.Resolve(c.Request.Context(), txnID)
	if err != nil {
		pc.logger.Warn("webhook status check failed", zap.String("txn_id", txnID), zap.Error(err))
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrPersistence):
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"success": false, "txn_id": txnID, "message": services.ErrorPage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "txn_id": txnID, "state": res.State, "changed": res.Changed})
}
