package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const providerSalesforce = "salesforce"

// CRM receives lead records.
type CRM interface {
	// Push creates a lead and returns its CRM id.
	Push(ctx context.Context, lead Lead) (string, error)
}

// Lead is the Salesforce Lead sObject payload.
type Lead struct {
	LastName      string `json:"LastName"`
	Phone         string `json:"Phone,omitempty"`
	Email         string `json:"Email,omitempty"`
	Street        string `json:"Street,omitempty"`
	City          string `json:"City,omitempty"`
	State         string `json:"State,omitempty"`
	PostalCode    string `json:"PostalCode,omitempty"`
	Company       string `json:"Company"`
	LeadSource    string `json:"LeadSource"`
	FormType      string `json:"Form_Type__c"`
	Variant       string `json:"Variant__c,omitempty"`
	Color         string `json:"Color__c,omitempty"`
	TransactionID string `json:"Transaction_Id__c"`
	PaymentStatus string `json:"Payment_Status__c,omitempty"`
	Amount        string `json:"Amount__c,omitempty"`
	PreferredDate string `json:"Preferred_Date__c,omitempty"`
	Description   string `json:"Description,omitempty"`
}

type SalesforceConfig struct {
	LoginURL     string
	ClientID     string
	ClientSecret string
	APIVersion   string
}

// SalesforceClient pushes leads using an OAuth client-credentials token,
// cached until the API rejects it.
type SalesforceClient struct {
	cfg        SalesforceConfig
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	instanceURL string
}

func NewSalesforceClient(cfg SalesforceConfig, httpClient *http.Client) *SalesforceClient {
	cfg.LoginURL = strings.TrimRight(cfg.LoginURL, "/")
	return &SalesforceClient{cfg: cfg, httpClient: httpClient}
}

type salesforceToken struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
}

type salesforceCreateResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

func (c *SalesforceClient) Push(ctx context.Context, lead Lead) (string, error) {
	token, instance, err := c.session(ctx, false)
	if err != nil {
		return "", err
	}

	id, err := c.createLead(ctx, token, instance, lead)
	var ge *GatewayError
	if errors.As(err, &ge) && ge.StatusCode == http.StatusUnauthorized {
		if token, instance, err = c.session(ctx, true); err != nil {
			return "", err
		}
		id, err = c.createLead(ctx, token, instance, lead)
	}
	return id, err
}

func (c *SalesforceClient) createLead(ctx context.Context, token, instance string, lead Lead) (string, error) {
	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/Lead", instance, c.cfg.APIVersion)

	body, err := do(ctx, c.httpClient, providerSalesforce, apiRequest{
		Method:  http.MethodPost,
		URL:     endpoint,
		Headers: map[string]string{"Authorization": "Bearer " + token},
		JSON:    lead,
	})
	if err != nil {
		return "", err
	}

	var res salesforceCreateResult
	if err := decode(providerSalesforce, body, &res); err != nil {
		return "", err
	}
	if !res.Success || res.ID == "" {
		return "", &GatewayError{Provider: providerSalesforce, Kind: KindDecode, Body: truncate(string(body), maxErrorBody), Err: errors.New("lead not created")}
	}
	return res.ID, nil
}

func (c *SalesforceClient) session(ctx context.Context, refresh bool) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !refresh {
		return c.token, c.instanceURL, nil
	}

	body, err := do(ctx, c.httpClient, providerSalesforce, apiRequest{
		Method: http.MethodPost,
		URL:    c.cfg.LoginURL + "/services/oauth2/token",
		Form: url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {c.cfg.ClientID},
			"client_secret": {c.cfg.ClientSecret},
		},
	})
	if err != nil {
		return "", "", asAuthError(err)
	}

	var tok salesforceToken
	if err := decode(providerSalesforce, body, &tok); err != nil {
		return "", "", asAuthError(err)
	}
	if tok.AccessToken == "" || tok.InstanceURL == "" {
		return "", "", &GatewayError{Provider: providerSalesforce, Kind: KindAuth, Err: errors.New("token response incomplete")}
	}

	c.token = tok.AccessToken
	c.instanceURL = strings.TrimRight(tok.InstanceURL, "/")
	return c.token, c.instanceURL, nil
}
