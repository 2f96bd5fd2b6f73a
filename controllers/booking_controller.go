package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akshay-since1987/kineticev-sub002/services"
	"github.com/akshay-since1987/kineticev-sub002/templates"
)

type BookingInitiator interface {
	Initiate(ctx context.Context, req *services.BookingRequest) (*services.InitiateResult, error)
}

// BookingController accepts the booking form and hands the browser to the
// payment gateway.
type BookingController struct {
	booking  BookingInitiator
	renderer *templates.Renderer
	urls     PageURLs
	logger   *zap.Logger
}

func NewBookingController(booking BookingInitiator, renderer *templates.Renderer, urls PageURLs, logger *zap.Logger) *BookingController {
	return &BookingController{booking: booking, renderer: renderer, urls: urls, logger: logger}
}

// Submit handles POST /book-now and POST /api/booking
func (bc *BookingController) Submit(c *gin.Context) {
	var req services.BookingRequest
	if err := c.ShouldBind(&req); err != nil {
		bc.redirectWithError(c, "Invalid booking form")
		return
	}

	res, err := bc.booking.Initiate(c.Request.Context(), &req)
	if err != nil {
		var be *services.BookingError
		if !errors.As(err, &be) {
			bc.logger.Error("unexpected booking failure", zap.Error(err))
			renderError(c, bc.renderer, bc.logger, templates.PageGatewayError, templates.PageData{RetryURL: bc.urls.Booking, HomeURL: bc.urls.Home})
			return
		}

		switch be.Reason {
		case services.FailValidation:
			bc.redirectWithError(c, be.Message)
		case services.FailDatabase:
			renderError(c, bc.renderer, bc.logger, templates.PageDBError, templates.PageData{TxnID: be.TxnID, RetryURL: bc.urls.Booking, HomeURL: bc.urls.Home})
		default:
			renderError(c, bc.renderer, bc.logger, templates.PageGatewayError, templates.PageData{TxnID: be.TxnID, RetryURL: bc.urls.Booking, HomeURL: bc.urls.Home})
		}
		return
	}

	var buf bytes.Buffer
	if err := bc.renderer.Redirect(&buf, templates.RedirectData{TxnID: res.TxnID, RedirectURL: res.CheckoutURL}); err != nil {
		bc.logger.Error("failed to render redirect page", zap.Error(err))
		c.Redirect(http.StatusSeeOther, res.CheckoutURL)
		return
	}
	writeHTML(c, http.StatusOK, &buf)
}

func (bc *BookingController) redirectWithError(c *gin.Context, msg string) {
	c.Redirect(http.StatusSeeOther, bc.urls.Booking+"?error="+url.QueryEscape(msg))
}
