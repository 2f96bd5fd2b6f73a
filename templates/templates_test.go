package templates

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ParsesEverything(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Len(t, r.emails, len(emailSubjects))
}

func TestRedirect(t *testing.T) {
	r := MustNew()
	var buf bytes.Buffer

	err := r.Redirect(&buf, RedirectData{TxnID: "KEV123", RedirectURL: "https://pay.example/checkout?id=1&x=2"})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, `href="https://pay.example/checkout?id=1&amp;x=2"`)
	assert.Contains(t, html, `window.location.replace("https://pay.example/checkout?id=1\u0026x=2")`)
	assert.Contains(t, html, "KEV123")
}

func TestRedirect_KeepsCheckoutToken(t *testing.T) {
	r := MustNew()
	var buf bytes.Buffer

	checkout := "https://mercury-uat.phonepe.com/transact/uat_v2?token=abc123"
	require.NoError(t, r.Redirect(&buf, RedirectData{TxnID: "KEV123", RedirectURL: checkout}))

	html := buf.String()
	// A field-less GET form would drop the query string on submit.
	assert.NotContains(t, html, "<form")
	assert.Contains(t, html, `href="`+checkout+`"`)

	start := strings.Index(html, "<script>")
	end := strings.Index(html, "</script>")
	require.True(t, start >= 0 && end > start)
	assert.Contains(t, html[start:end], "uat_v2?token=abc123")
}

func TestError_Kinds(t *testing.T) {
	r := MustNew()

	cases := map[string]int{
		PageGatewayError: http.StatusBadGateway,
		PageAuthError:    http.StatusBadGateway,
		PageStatusError:  http.StatusBadGateway,
		PageDecodeError:  http.StatusBadGateway,
		PageDBError:      http.StatusInternalServerError,
		PageMissingTxn:   http.StatusBadRequest,
		PageNotFound:     http.StatusNotFound,
	}
	for kind, want := range cases {
		var buf bytes.Buffer
		status, err := r.Error(&buf, kind, PageData{TxnID: "KEV1", RetryURL: "/payment/status?txnid=KEV1", HomeURL: "/"})
		require.NoError(t, err, kind)
		assert.Equal(t, want, status, kind)
		assert.Equal(t, want, ErrorStatus(kind), kind)
		assert.Contains(t, buf.String(), `href="/"`, kind)
	}
}

func TestError_RetryLinkOnlyWhereRetryable(t *testing.T) {
	r := MustNew()

	var buf bytes.Buffer
	_, err := r.Error(&buf, PageGatewayError, PageData{RetryURL: "/retry-here", HomeURL: "/"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "/retry-here")

	buf.Reset()
	_, err = r.Error(&buf, PageNotFound, PageData{RetryURL: "/retry-here", HomeURL: "/"})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "/retry-here")
}

func TestError_UnknownKind(t *testing.T) {
	var buf bytes.Buffer
	status, err := MustNew().Error(&buf, "nope", PageData{})
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestPending(t *testing.T) {
	var buf bytes.Buffer
	err := MustNew().Pending(&buf, PageData{TxnID: "KEV9", RetryURL: "/payment/status?txnid=KEV9", HomeURL: "/"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "KEV9")
	assert.Contains(t, buf.String(), "/payment/status?txnid=KEV9")
}

func TestEmail(t *testing.T) {
	r := MustNew()

	subject, body, err := r.Email(EmailPaymentSuccessCustomer, EmailData{
		TxnID:  "KEV42",
		Name:   "Asha <b>",
		Amount: "₹1,000.00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Your Kinetic EV booking is confirmed - KEV42", subject)
	assert.Contains(t, body, "₹1,000.00")
	assert.Contains(t, body, "Asha &lt;b&gt;")
}

func TestEmail_TestRideOptionalRows(t *testing.T) {
	_, body, err := MustNew().Email(EmailTestRideAdmin, EmailData{TxnID: "TR-1", Name: "Ravi", OTPVerified: true})
	require.NoError(t, err)
	assert.NotContains(t, body, "Preferred date")
	assert.Contains(t, body, "yes")
}

func TestEmail_Unknown(t *testing.T) {
	_, _, err := MustNew().Email("missing", EmailData{})
	assert.Error(t, err)
}
