package number_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/number-provisioning/internal"
	"github.com/frahmantamala/number-provisioning/internal/number"
	"github.com/frahmantamala/number-provisioning/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockService implements number.ServiceAPI for testing
type MockService struct {
	result    *number.ProvisionResult
	err       error
	gotReq    number.ProvisionRequest
	gotCtxErr error
}

func (m *MockService) Provision(ctx context.Context, accountID int64, req number.ProvisionRequest) (*number.ProvisionResult, error) {
	m.gotReq = req
	m.gotCtxErr = ctx.Err()
	return m.result, m.err
}

func (m *MockService) GetNumber(ctx context.Context, accountID int64, phoneNumber string) (*number.PhoneNumber, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result.Number, nil
}

var _ = Describe("Handler", func() {
	var (
		service *MockService
		handler *number.Handler
		router  chi.Router
	)

	withAccount := func(r *http.Request) *http.Request {
		return r.WithContext(internal.ContextWithAccount(r.Context(), &internal.Account{ID: 42}))
	}

	decodeError := func(rec *httptest.ResponseRecorder) map[string]interface{} {
		var body struct {
			Error map[string]interface{} `json:"error"`
		}
		Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
		return body.Error
	}

	BeforeEach(func() {
		service = &MockService{result: &number.ProvisionResult{
			State: number.StateFulfilledNew,
			Number: &number.PhoneNumber{
				ID:        7,
				AccountID: 42,
				Number:    "+14155550000",
				Region:    "US",
				Category:  "standard",
				Status:    "active",
				AutoRenew: true,
				CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			},
		}}
		handler = number.NewHandler(transport.NewBaseHandler(testLogger), service)
		router = chi.NewRouter()
		router.Post("/numbers/provision", handler.Provision)
		router.Get("/numbers/{number}", handler.GetNumber)
	})

	Describe("Provision", func() {
		It("returns the number view and the state header", func() {
			req := withAccount(httptest.NewRequest(http.MethodPost, "/numbers/provision",
				strings.NewReader(`{"paymentReference":"pay_123","gateway":"A"}`)))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("X-Provision-State")).To(Equal("FULFILLED_NEW"))
			Expect(service.gotReq.PaymentReference).To(Equal("pay_123"))

			var view map[string]interface{}
			Expect(json.NewDecoder(rec.Body).Decode(&view)).To(Succeed())
			Expect(view["resourceIdentifier"]).To(Equal("+14155550000"))
			Expect(view).To(HaveKeyWithValue("expiry", BeNil()))
			Expect(view["autoRenew"]).To(BeTrue())
		})

		It("answers 401 without an account", func() {
			req := httptest.NewRequest(http.MethodPost, "/numbers/provision", strings.NewReader(`{}`))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec)["code"]).To(Equal("AUTH_REQUIRED"))
		})

		It("answers 400 for a malformed body", func() {
			req := withAccount(httptest.NewRequest(http.MethodPost, "/numbers/provision", strings.NewReader(`{"paymentReference":`)))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec)["code"]).To(Equal("VALIDATION_FAILED"))
		})

		It("renders service errors with their status and code", func() {
			service.err = internal.NewPaymentRequiredError("payment has not completed", internal.ErrCodePaymentNotCompleted)
			req := withAccount(httptest.NewRequest(http.MethodPost, "/numbers/provision",
				strings.NewReader(`{"paymentReference":"pay_123","gateway":"A"}`)))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusPaymentRequired))
			Expect(decodeError(rec)["code"]).To(Equal("PAYMENT_NOT_COMPLETED"))
		})

		It("marks retryable failures", func() {
			service.err = internal.NewRetryableError("failed to allocate phone number", internal.ErrCodeAllocationFailed, nil)
			req := withAccount(httptest.NewRequest(http.MethodPost, "/numbers/provision",
				strings.NewReader(`{"paymentReference":"pay_123","gateway":"A"}`)))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Header().Get("Retry-After")).NotTo(BeEmpty())
			body := decodeError(rec)
			Expect(body["code"]).To(Equal("ALLOCATION_FAILED"))
			Expect(body["retryable"]).To(BeTrue())
		})

		It("keeps working after the client goes away", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req := withAccount(httptest.NewRequest(http.MethodPost, "/numbers/provision",
				strings.NewReader(`{"paymentReference":"pay_123","gateway":"A"}`)).WithContext(ctx))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(service.gotCtxErr).To(BeNil())
		})
	})

	Describe("GetNumber", func() {
		It("returns the caller's number", func() {
			req := withAccount(httptest.NewRequest(http.MethodGet, "/numbers/+14155550000", nil))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("answers 404 for numbers the caller does not own", func() {
			service.err = internal.ErrPhoneNumberNotFound
			req := withAccount(httptest.NewRequest(http.MethodGet, "/numbers/+14155550000", nil))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(decodeError(rec)["code"]).To(Equal("PHONE_NUMBER_NOT_FOUND"))
		})
	})
})
