package paymentgateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	paymentgatewaytypes "github.com/frahmantamala/number-provisioning/internal/core/datamodel/paymentgateway"
	"github.com/shopspring/decimal"
)

type CaptureConfig struct {
	BaseURL    string
	SecretKey  string
	Timeout    time.Duration
	MaxRetries uint64
}

// CaptureVerifier reads payment intents from the synchronous-capture gateway.
type CaptureVerifier struct {
	baseURL    string
	secretKey  string
	maxRetries uint64
	client     httpDoer
	logger     *slog.Logger
}

func NewCaptureVerifier(cfg CaptureConfig, logger *slog.Logger) *CaptureVerifier {
	return &CaptureVerifier{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		maxRetries: cfg.MaxRetries,
		client:     newHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

func (v *CaptureVerifier) Verify(ctx context.Context, paymentID string) (*VerifiedPayment, error) {
	endpoint := v.baseURL + "/v1/payment_intents/" + url.PathEscape(paymentID)

	var intent paymentgatewaytypes.CaptureIntent
	err := getJSON(ctx, v.client, v.maxRetries, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+v.secretKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, &intent)
	if err != nil {
		v.logger.Warn("capture gateway lookup failed", "payment_id", paymentID, "error", err)
		return nil, err
	}

	v.logger.Debug("capture gateway intent retrieved",
		"payment_id", paymentID,
		"status", intent.Status,
		"amount", intent.Amount)

	return &VerifiedPayment{
		Succeeded: intent.Status == paymentgatewaytypes.CaptureStatusSucceeded,
		Status:    intent.Status,
		// minor units
		Amount:   decimal.New(intent.Amount, -2),
		Currency: strings.ToUpper(intent.Currency),
		Metadata: NormalizeMetadata(intent.Metadata),
	}, nil
}
