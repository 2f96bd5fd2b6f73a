package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBody = 2048

// NewHTTPClient returns a client with separate dial and overall timeouts.
func NewHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	return &http.Client{Transport: transport, Timeout: readTimeout}
}

// apiRequest describes one outbound call. JSON and Form are mutually exclusive.
type apiRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	JSON    interface{}
	Form    url.Values
}

// do executes req and returns the response body of a 2xx reply. Failures are
// returned as *GatewayError tagged with provider.
func do(ctx context.Context, client *http.Client, provider string, req apiRequest) ([]byte, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Provider: provider, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Provider: provider, Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{
			Provider:   provider,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBytes), maxErrorBody),
		}
	}
	return respBytes, nil
}

func decode(provider string, data []byte, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return &GatewayError{Provider: provider, Kind: KindDecode, Body: truncate(string(data), maxErrorBody), Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
