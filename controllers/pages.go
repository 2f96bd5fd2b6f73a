package controllers

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/templates"
)

// PageURLs are the site pages the payment flow links and redirects to.
type PageURLs struct {
	Booking  string
	ThankYou string
	Home     string
}

func (u PageURLs) withTxn(base, txnID string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "txnid=" + url.QueryEscape(txnID)
}

func statusPath(txnID string) string {
	return "/payment/status?txnid=" + url.QueryEscape(txnID)
}

func writeHTML(c *gin.Context, status int, buf *bytes.Buffer) {
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// renderError writes the error page of the given kind, falling back to plain
// text if the template itself fails.
func renderError(c *gin.Context, r *templates.Renderer, logger *zap.Logger, kind string, data templates.PageData) {
	var buf bytes.Buffer
	status, err := r.Error(&buf, kind, data)
	if err != nil {
		logger.Error("failed to render error page", zap.String("page", kind), zap.Error(err))
		c.String(http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	writeHTML(c, status, &buf)
}
