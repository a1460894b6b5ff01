package paymentgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	paymentgatewaytypes "github.com/frahmantamala/number-provisioning/internal/core/datamodel/paymentgateway"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout   = 10 * time.Second
	retryBase        = 100 * time.Millisecond
	retryCap         = 2 * time.Second
	maxResponseBytes = 1 << 20
)

// httpDoer is satisfied by *http.Client.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func newBackoff(maxRetries uint64) retry.Backoff {
	return retry.WithMaxRetries(maxRetries, retry.WithCappedDuration(retryCap, retry.NewExponential(retryBase)))
}

// getJSON issues a GET built by newReq and decodes a 2xx body into out. Network
// failures, 429 and 5xx are retried; 404 maps to ErrPaymentNotFound and every
// other failure to ErrPaymentGateway.
func getJSON(ctx context.Context, client httpDoer, maxRetries uint64, newReq func(ctx context.Context) (*http.Request, error), out interface{}) error {
	err := retry.Do(ctx, newBackoff(maxRetries), func(ctx context.Context) error {
		req, err := newReq(ctx)
		if err != nil {
			return fmt.Errorf("%w: build request: %v", ErrPaymentGateway, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", ErrPaymentGateway, err)
			}
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrPaymentGateway, err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: read body: %v", ErrPaymentGateway, err))
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrPaymentNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("%w: status %d", ErrPaymentGateway, resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return fmt.Errorf("%w: status %d: %s", ErrPaymentGateway, resp.StatusCode, apiErrorMessage(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: malformed response: %v", ErrPaymentGateway, err)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPaymentNotFound) || errors.Is(err, ErrPaymentGateway) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPaymentGateway, err)
}

func apiErrorMessage(body []byte) string {
	var apiErr paymentgatewaytypes.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error.Message != "" {
			return apiErr.Error.Message
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
