package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/odontobb/odontobb/internal/pkg/constants"
	"github.com/odontobb/odontobb/internal/pkg/env"
)

const defaultPrepareURL = "https://pay.payphonetodoesposible.com/api/button/Prepare"

// Gateway initiates transactions with the external payment processor.
type Gateway interface {
	Prepare(ctx context.Context, req PrepareRequest) (*PrepareResponse, error)
}

// PayPhoneClient talks to the PayPhone "button" API.
type PayPhoneClient struct {
	Token       string
	PrepareURL  string
	ResponseURL string
	CancelURL   string
	CountryCode string

	HTTPClient *http.Client
}

// PrepareRequest is the gateway's prepare-transaction payload. Amounts are
// in integer cents.
type PrepareRequest struct {
	Amount              int    `json:"amount"`
	AmountWithoutTax    int    `json:"amountWithoutTax"`
	Tax                 int    `json:"tax"`
	ClientTransactionID string `json:"clientTransactionId"`
	CountryCode         string `json:"countryCode"`
	Reference           string `json:"reference"`
	ResponseURL         string `json:"responseUrl"`
	CancelURL           string `json:"cancelUrl"`
}

// PrepareResponse carries the hosted payment page URL.
type PrepareResponse struct {
	PayWithPayPhone string `json:"payWithPayPhone"`
}

func NewPayPhoneClientFromEnv() *PayPhoneClient {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	responseURL := strings.TrimSpace(env.GetEnv("PAYPHONE_RESPONSE_URL", ""))
	cancelURL := strings.TrimSpace(env.GetEnv("PAYPHONE_CANCEL_URL", ""))
	if responseURL == "" && base != "" {
		responseURL = base + constants.PaymentHookRoute
	}
	if cancelURL == "" && base != "" {
		cancelURL = base + constants.PaymentCancelRoute
	}

	return &PayPhoneClient{
		Token:       strings.TrimSpace(env.GetEnv("PAYPHONE_API_TOKEN", "")),
		PrepareURL:  strings.TrimSpace(env.GetEnv("PAYPHONE_PREPARE_URL", defaultPrepareURL)),
		ResponseURL: responseURL,
		CancelURL:   cancelURL,
		CountryCode: strings.TrimSpace(env.GetEnv("PAYPHONE_COUNTRY_CODE", "593")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Prepare requests a hosted payment link from the gateway. Any non-success
// status, unreadable body or missing payment URL maps to ErrGatewayUnavailable
// so callers can treat the gateway as a single upstream.
func (c *PayPhoneClient) Prepare(ctx context.Context, req PrepareRequest) (*PrepareResponse, error) {
	if strings.TrimSpace(c.Token) == "" {
		return nil, fmt.Errorf("%w: PAYPHONE_API_TOKEN is not configured", ErrGatewayUnavailable)
	}
	if req.CountryCode == "" {
		req.CountryCode = c.CountryCode
	}
	if req.ResponseURL == "" {
		req.ResponseURL = c.ResponseURL
	}
	if req.CancelURL == "" {
		req.CancelURL = c.CancelURL
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PrepareURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: prepare failed: status=%d body=%s", ErrGatewayUnavailable, resp.StatusCode, string(body))
	}

	var out PrepareResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: unreadable prepare response: %v", ErrGatewayUnavailable, err)
	}
	if strings.TrimSpace(out.PayWithPayPhone) == "" {
		return nil, fmt.Errorf("%w: prepare response carries no payment url", ErrGatewayUnavailable)
	}
	return &out, nil
}
