package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
)

//go:embed pages/*.html emails/*.html
var files embed.FS

// Error page kinds.
const (
	PageGatewayError = "gateway_error"
	PageAuthError    = "auth_error"
	PageStatusError  = "status_error"
	PageDecodeError  = "decode_error"
	PageDBError      = "db_error"
	PageMissingTxn   = "missing_txn"
	PageNotFound     = "not_found"
)

// Email template names.
const (
	EmailPaymentSuccessAdmin    = "payment_success_admin"
	EmailPaymentSuccessCustomer = "payment_success_customer"
	EmailPaymentFailureAdmin    = "payment_failure_admin"
	EmailPaymentFailureCustomer = "payment_failure_customer"
	EmailBookingDBFailureAdmin  = "booking_db_failure_admin"
	EmailTestRideAdmin          = "test_ride_admin"
)

type errorPage struct {
	status     int
	title      string
	message    string
	retryLabel string
}

var errorPages = map[string]errorPage{
	PageGatewayError: {http.StatusBadGateway, "Payment service unavailable",
		"We could not reach the payment service. No payment has been taken.", "Try again"},
	PageAuthError: {http.StatusBadGateway, "Payment service unavailable",
		"We could not authenticate with the payment service. Please try again in a moment.", "Try again"},
	PageStatusError: {http.StatusBadGateway, "Could not confirm payment",
		"The payment service returned an unexpected response while we checked your payment.", "Check again"},
	PageDecodeError: {http.StatusBadGateway, "Could not confirm payment",
		"We could not read the payment service's response.", "Check again"},
	PageDBError: {http.StatusInternalServerError, "Booking not saved",
		"We could not save your booking. Our team has been notified. No payment has been taken.", "Try again"},
	PageMissingTxn: {http.StatusBadRequest, "Missing booking reference",
		"The payment status link is missing its booking reference.", ""},
	PageNotFound: {http.StatusNotFound, "Booking not found",
		"We could not find a booking with this reference.", ""},
}

var emailSubjects = map[string]string{
	EmailPaymentSuccessAdmin:    "New booking payment received - %s",
	EmailPaymentSuccessCustomer: "Your Kinetic EV booking is confirmed - %s",
	EmailPaymentFailureAdmin:    "Booking payment failed - %s",
	EmailPaymentFailureCustomer: "Your payment could not be completed - %s",
	EmailBookingDBFailureAdmin:  "Booking could not be saved - %s",
	EmailTestRideAdmin:          "New test ride request - %s",
}

// RedirectData feeds the auto-submitting gateway redirect page.
type RedirectData struct {
	TxnID       string
	RedirectURL string
}

// PageData feeds the error and pending pages.
type PageData struct {
	TxnID    string
	RetryURL string
	HomeURL  string
}

// EmailData is shared by every email template. Amount is preformatted.
type EmailData struct {
	TxnID       string
	Name        string
	Phone       string
	Email       string
	Address     string
	City        string
	State       string
	Pincode     string
	Variant     string
	Color       string
	Amount      string
	Status      string
	Reason      string
	RetryURL    string
	Date        string
	Message     string
	OTPVerified bool
}

// Renderer holds the parsed page and email templates.
type Renderer struct {
	redirect *template.Template
	errPage  *template.Template
	pending  *template.Template
	emails   map[string]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{emails: make(map[string]*template.Template, len(emailSubjects))}

	var err error
	if r.redirect, err = template.ParseFS(files, "pages/redirect.html"); err != nil {
		return nil, fmt.Errorf("parse redirect page: %w", err)
	}
	if r.errPage, err = template.ParseFS(files, "pages/error.html"); err != nil {
		return nil, fmt.Errorf("parse error page: %w", err)
	}
	if r.pending, err = template.ParseFS(files, "pages/pending.html"); err != nil {
		return nil, fmt.Errorf("parse pending page: %w", err)
	}

	for name := range emailSubjects {
		tmpl, err := template.ParseFS(files, "emails/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse email template %s: %w", name, err)
		}
		r.emails[name] = tmpl
	}
	return r, nil
}

// MustNew panics if the embedded templates fail to parse.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Redirect(w io.Writer, data RedirectData) error {
	return r.redirect.Execute(w, data)
}

func (r *Renderer) Pending(w io.Writer, data PageData) error {
	return r.pending.Execute(w, data)
}

// Error renders the error page of the given kind and returns the HTTP
// status it should be served with.
func (r *Renderer) Error(w io.Writer, kind string, data PageData) (int, error) {
	page, ok := errorPages[kind]
	if !ok {
		return http.StatusInternalServerError, fmt.Errorf("unknown error page %q", kind)
	}

	view := struct {
		PageData
		Title      string
		Message    string
		RetryLabel string
	}{data, page.title, page.message, page.retryLabel}
	if page.retryLabel == "" {
		view.RetryURL = ""
	}

	return page.status, r.errPage.Execute(w, view)
}

// ErrorStatus returns the HTTP status used for an error page kind.
func ErrorStatus(kind string) int {
	if page, ok := errorPages[kind]; ok {
		return page.status
	}
	return http.StatusInternalServerError
}

// Email renders the named email and its subject line.
func (r *Renderer) Email(name string, data EmailData) (string, string, error) {
	tmpl, ok := r.emails[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return fmt.Sprintf(emailSubjects[name], data.TxnID), buf.String(), nil
}
