package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const providerPhonePe = "phonepe"

// PaymentGateway is the hosted-checkout gateway used for booking payments.
type PaymentGateway interface {
	// FetchToken performs the client-credentials exchange.
	FetchToken(ctx context.Context) (string, error)
	// CreateOrder opens a checkout session and returns where to send the browser.
	CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (*CreateOrderResponse, error)
	// OrderStatus returns the raw JSON status document for a merchant order.
	OrderStatus(ctx context.Context, token, merchantOrderID string) (json.RawMessage, error)
}

type CreateOrderRequest struct {
	MerchantOrderID string
	AmountPaise     int64
	RedirectURL     string
	Message         string
	MetaInfo        map[string]string
}

type CreateOrderResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	ExpireAt    int64  `json:"expireAt"`
	RedirectURL string `json:"redirectUrl"`
}

type PhonePeConfig struct {
	BaseURL       string
	AuthURL       string
	ClientID      string
	ClientSecret  string
	ClientVersion string
}

// PhonePeClient implements PaymentGateway against the PhonePe standard
// checkout v2 API.
type PhonePeClient struct {
	cfg        PhonePeConfig
	httpClient *http.Client
}

func NewPhonePeClient(cfg PhonePeConfig, httpClient *http.Client) *PhonePeClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &PhonePeClient{cfg: cfg, httpClient: httpClient}
}

type phonePeToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

type phonePePayRequest struct {
	MerchantOrderID string            `json:"merchantOrderId"`
	Amount          int64             `json:"amount"`
	ExpireAfter     int               `json:"expireAfter"`
	MetaInfo        map[string]string `json:"metaInfo,omitempty"`
	PaymentFlow     phonePePayFlow    `json:"paymentFlow"`
}

type phonePePayFlow struct {
	Type         string              `json:"type"`
	Message      string              `json:"message,omitempty"`
	MerchantURLs phonePeMerchantURLs `json:"merchantUrls"`
}

type phonePeMerchantURLs struct {
	RedirectURL string `json:"redirectUrl"`
}

func (c *PhonePeClient) FetchToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":      {c.cfg.ClientID},
		"client_version": {c.cfg.ClientVersion},
		"client_secret":  {c.cfg.ClientSecret},
		"grant_type":     {"client_credentials"},
	}

	body, err := do(ctx, c.httpClient, providerPhonePe, apiRequest{
		Method: http.MethodPost,
		URL:    c.cfg.AuthURL,
		Form:   form,
	})
	if err != nil {
		return "", asAuthError(err)
	}

	var tok phonePeToken
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		if err == nil {
			err = errors.New("access_token missing from response")
		}
		return "", &GatewayError{Provider: providerPhonePe, Kind: KindAuth, Body: truncate(string(body), maxErrorBody), Err: err}
	}
	return tok.AccessToken, nil
}

func (c *PhonePeClient) CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if req.AmountPaise <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d paise", req.AmountPaise)
	}

	payload := phonePePayRequest{
		MerchantOrderID: req.MerchantOrderID,
		Amount:          req.AmountPaise,
		ExpireAfter:     1200,
		MetaInfo:        req.MetaInfo,
		PaymentFlow: phonePePayFlow{
			Type:         "PG_CHECKOUT",
			Message:      req.Message,
			MerchantURLs: phonePeMerchantURLs{RedirectURL: req.RedirectURL},
		},
	}

	body, err := do(ctx, c.httpClient, providerPhonePe, apiRequest{
		Method:  http.MethodPost,
		URL:     c.cfg.BaseURL + "/checkout/v2/pay",
		Headers: map[string]string{"Authorization": "O-Bearer " + token},
		JSON:    payload,
	})
	if err != nil {
		return nil, err
	}

	var out CreateOrderResponse
	if err := decode(providerPhonePe, body, &out); err != nil {
		return nil, err
	}
	if out.RedirectURL == "" {
		return nil, &GatewayError{Provider: providerPhonePe, Kind: KindDecode, Body: truncate(string(body), maxErrorBody), Err: errors.New("redirectUrl missing from response")}
	}
	return &out, nil
}

func (c *PhonePeClient) OrderStatus(ctx context.Context, token, merchantOrderID string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/checkout/v2/order/%s/status?details=false", c.cfg.BaseURL, url.PathEscape(merchantOrderID))

	body, err := do(ctx, c.httpClient, providerPhonePe, apiRequest{
		Method:  http.MethodGet,
		URL:     endpoint,
		Headers: map[string]string{"Authorization": "O-Bearer " + token},
	})
	if err != nil {
		return nil, err
	}

	var probe map[string]interface{}
	if err := decode(providerPhonePe, body, &probe); err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// asAuthError reclassifies non-transport token failures as auth failures.
func asAuthError(err error) error {
	var ge *GatewayError
	if errors.As(err, &ge) && ge.Kind != KindTransport {
		ge.Kind = KindAuth
	}
	return err
}
