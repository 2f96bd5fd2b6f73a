package controllers_test

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshay-since1987/kineticev-sub002/controllers"
	"github.com/akshay-since1987/kineticev-sub002/models"
	"github.com/akshay-since1987/kineticev-sub002/providers"
	"github.com/akshay-since1987/kineticev-sub002/services"
)

var webhookCreds = controllers.WebhookCredentials{Username: "kinetic", Password: "s3cret"}

func webhookToken() string {
	sum := sha256.Sum256([]byte("kinetic:s3cret"))
	return hex.EncodeToString(sum[:])
}

func setupPaymentRouter(resolver controllers.StatusResolver, creds controllers.WebhookCredentials) *gin.Engine {
	r := gin.New()
	pc := controllers.NewPaymentController(resolver, testRenderer, testURLs, creds, testLogger)
	r.GET("/payment/status", pc.Status)
	r.POST("/payment/status", pc.Status)
	r.POST("/api/payment/webhook", pc.Webhook)
	return r
}

func getStatus(r *gin.Engine, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/payment/status"+query, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatus_CompletedRedirectsToThankYou(t *testing.T) {
	resolver := resolvedAs(models.StatusCompleted)
	w := getStatus(setupPaymentRouter(resolver, webhookCreds), "?txnid="+txnID)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/thank-you?txnid="+txnID, w.Header().Get("Location"))
	assert.Equal(t, []string{txnID}, resolver.calls)
}

func TestStatus_FailedRedirectsHome(t *testing.T) {
	w := getStatus(setupPaymentRouter(resolvedAs(models.StatusFailed), webhookCreds), "?txnid="+txnID)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestStatus_PendingRendersRecheckLink(t *testing.T) {
	w := getStatus(setupPaymentRouter(resolvedAs(models.StatusPending), webhookCreds), "?txnid="+txnID)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/payment/status?txnid="+txnID)
}

func TestStatus_ReadsAlternateParameterNames(t *testing.T) {
	for _, name := range []string{"transactionId", "merchantOrderId", "orderId", "merchant_order_id", "transaction_id"} {
		t.Run(name, func(t *testing.T) {
			resolver := resolvedAs(models.StatusCompleted)
			w := getStatus(setupPaymentRouter(resolver, webhookCreds), "?"+name+"="+txnID)

			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, []string{txnID}, resolver.calls)
		})
	}
}

func TestStatus_PostForm(t *testing.T) {
	resolver := resolvedAs(models.StatusCompleted)
	r := setupPaymentRouter(resolver, webhookCreds)

	req := httptest.NewRequest(http.MethodPost, "/payment/status", strings.NewReader(url.Values{"merchantOrderId": {txnID}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []string{txnID}, resolver.calls)
}

func TestStatus_MissingTxnID(t *testing.T) {
	resolver := resolvedAs(models.StatusCompleted)
	w := getStatus(setupPaymentRouter(resolver, webhookCreds), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing booking reference")
	assert.Empty(t, resolver.calls)
}

func TestStatus_ErrorPages(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		text   string
	}{
		{"not found", services.ErrTransactionNotFound, http.StatusNotFound, "Booking not found"},
		{"persistence", fmt.Errorf("%w: timeout", services.ErrPersistence), http.StatusInternalServerError, "Booking not saved"},
		{"auth", &providers.GatewayError{Provider: "phonepe", Kind: providers.KindAuth}, http.StatusBadGateway, "authenticate"},
		{"status", &providers.GatewayError{Provider: "phonepe", Kind: providers.KindStatus, StatusCode: 500}, http.StatusBadGateway, "unexpected response"},
		{"decode", &providers.GatewayError{Provider: "phonepe", Kind: providers.KindDecode}, http.StatusBadGateway, "could not read"},
		{"transport", &providers.GatewayError{Provider: "phonepe", Kind: providers.KindTransport}, http.StatusBadGateway, "could not reach"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := getStatus(setupPaymentRouter(failingResolver(tc.err), webhookCreds), "?txnid="+txnID)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.text)
		})
	}
}

func postWebhook(r *gin.Engine, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_ResolvesOrder(t *testing.T) {
	for _, auth := range []string{webhookToken(), "SHA256 " + webhookToken(), strings.ToUpper(webhookToken())} {
		resolver := resolvedAs(models.StatusCompleted)
		w := postWebhook(setupPaymentRouter(resolver, webhookCreds), auth, `{"merchantOrderId":"`+txnID+`"}`)

		require.Equal(t, http.StatusOK, w.Code, auth)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, models.StatusCompleted, resp["state"])
		assert.Equal(t, []string{txnID}, resolver.calls)
	}
}

func TestWebhook_NestedPayloadOrderID(t *testing.T) {
	resolver := resolvedAs(models.StatusFailed)
	body := `{"event":"checkout.order.failed","payload":{"merchantOrderId":"` + txnID + `","state":"FAILED"}}`
	w := postWebhook(setupPaymentRouter(resolver, webhookCreds), webhookToken(), body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{txnID}, resolver.calls)
}

func TestWebhook_RejectsBadCredentials(t *testing.T) {
	resolver := resolvedAs(models.StatusCompleted)
	r := setupPaymentRouter(resolver, webhookCreds)

	assert.Equal(t, http.StatusUnauthorized, postWebhook(r, "", `{"merchantOrderId":"x"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, postWebhook(r, "deadbeef", `{"merchantOrderId":"x"}`).Code)
	assert.Empty(t, resolver.calls)
}

func TestWebhook_UnconfiguredRejectsEverything(t *testing.T) {
	empty := sha256.Sum256([]byte(":"))
	resolver := resolvedAs(models.StatusCompleted)
	w := postWebhook(setupPaymentRouter(resolver, controllers.WebhookCredentials{}), hex.EncodeToString(empty[:]), `{"merchantOrderId":"x"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, resolver.calls)
}

func TestWebhook_MissingOrderID(t *testing.T) {
	w := postWebhook(setupPaymentRouter(resolvedAs(models.StatusCompleted), webhookCreds), webhookToken(), `{"payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_UnknownOrder(t *testing.T) {
	w := postWebhook(setupPaymentRouter(failingResolver(services.ErrTransactionNotFound), webhookCreds), webhookToken(), `{"merchantOrderId":"`+txnID+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
