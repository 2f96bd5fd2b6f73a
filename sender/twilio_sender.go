package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com"

type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

func NewTwilioSender(accountSID, authToken, fromNumber string) (*TwilioSender, error) {
	if accountSID == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID not set")
	}
	if authToken == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN not set")
	}
	if fromNumber == "" {
		return nil, fmt.Errorf("TWILIO_FROM_NUMBER not set")
	}

	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// SendSMS sends msg to a 10-digit Indian mobile number or an E.164 number.
func (t *TwilioSender) SendSMS(ctx context.Context, to, msg string) (SendResult, error) {
	apiURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	form := url.Values{}
	form.Set("To", toE164(to))
	form.Set("From", t.fromNumber)
	form.Set("Body", msg)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return SendResult{}, fmt.Errorf("twilio error %s: %s", resp.Status, string(body))
	}

	var out struct {
		SID string `json:"sid"`
	}
	_ = json.Unmarshal(body, &out)
	if out.SID == "" {
		out.SID = fmt.Sprintf("twilio-%d", time.Now().UnixNano())
	}
	return SendResult{MessageID: out.SID, SentAt: time.Now()}, nil
}

func toE164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if len(phone) == 10 {
		return "+91" + phone
	}
	return phone
}
