package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	paymentgatewaytypes "github.com/frahmantamala/number-provisioning/internal/core/datamodel/paymentgateway"
	"github.com/shopspring/decimal"
)

type OrderConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	MaxRetries   uint64
}

// OrderVerifier reads orders from the authorization + order gateway. Each
// verification exchanges the client credentials for a fresh access token.
type OrderVerifier struct {
	baseURL      string
	clientID     string
	clientSecret string
	maxRetries   uint64
	client       httpDoer
	logger       *slog.Logger
}

func NewOrderVerifier(cfg OrderConfig, logger *slog.Logger) *OrderVerifier {
	return &OrderVerifier{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		maxRetries:   cfg.MaxRetries,
		client:       newHTTPClient(cfg.Timeout),
		logger:       logger,
	}
}

func (v *OrderVerifier) Verify(ctx context.Context, orderID string) (*VerifiedPayment, error) {
	token, err := v.accessToken(ctx)
	if err != nil {
		v.logger.Error("order gateway token exchange failed", "error", err)
		return nil, err
	}

	endpoint := v.baseURL + "/v2/checkout/orders/" + url.PathEscape(orderID)

	var order paymentgatewaytypes.Order
	err = getJSON(ctx, v.client, v.maxRetries, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, &order)
	if err != nil {
		v.logger.Warn("order gateway lookup failed", "order_id", orderID, "error", err)
		return nil, err
	}

	payment := &VerifiedPayment{
		Succeeded: strings.EqualFold(order.Status, paymentgatewaytypes.OrderStatusCompleted),
		Status:    order.Status,
		Amount:    decimal.Zero,
		Metadata:  Metadata{},
	}

	if len(order.PurchaseUnits) == 0 {
		return payment, nil
	}
	unit := order.PurchaseUnits[0]

	payment.Currency = unit.Amount.CurrencyCode
	if unit.Amount.Value != "" {
		amount, err := decimal.NewFromString(unit.Amount.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed amount %q", ErrPaymentGateway, unit.Amount.Value)
		}
		payment.Amount = amount
	}

	payment.Metadata = v.parseCustomField(orderID, unit.CustomID)
	return payment, nil
}

// parseCustomField decodes the JSON object carried in the order's custom field.
// Anything unparseable is logged and treated as no metadata.
func (v *OrderVerifier) parseCustomField(orderID, raw string) Metadata {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Metadata{}
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		v.logger.Warn("order custom field is not valid metadata, ignoring",
			"order_id", orderID,
			"error", err)
		return Metadata{}
	}

	flat := make(map[string]string, len(fields))
	for k, val := range fields {
		switch tv := val.(type) {
		case string:
			flat[k] = tv
		case float64, bool:
			flat[k] = fmt.Sprint(tv)
		}
	}
	return NormalizeMetadata(flat)
}

func (v *OrderVerifier) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", ErrPaymentGateway, err)
	}
	req.SetBasicAuth(v.clientID, v.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read token response: %v", ErrPaymentGateway, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", ErrPaymentGateway, resp.StatusCode, apiErrorMessage(body))
	}

	var token paymentgatewaytypes.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return "", fmt.Errorf("%w: malformed token response", ErrPaymentGateway)
	}
	return token.AccessToken, nil
}
