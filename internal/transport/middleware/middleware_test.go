package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/frahmantamala/number-provisioning/internal/transport"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestMiddleware(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Middleware Suite")
}

var _ = ginkgo.Describe("filterSensitiveBody", func() {
	ginkgo.It("should mask secrets at any depth", func() {
		out := filterSensitiveBody([]byte(`{"paymentReference":"pi_1","auth":{"access_token":"abc"},"items":[{"api_key":"k"}]}`))

		gomega.Expect(out).To(gomega.ContainSubstring(`"paymentReference":"pi_1"`))
		gomega.Expect(out).ToNot(gomega.ContainSubstring("abc"))
		gomega.Expect(out).ToNot(gomega.ContainSubstring(`"k"`))
	})

	ginkgo.It("should mask non-JSON bodies mentioning secrets", func() {
		gomega.Expect(filterSensitiveBody([]byte("client_secret=shh"))).To(gomega.HavePrefix("[FILTERED"))
		gomega.Expect(filterSensitiveBody([]byte("hello"))).To(gomega.Equal("hello"))
	})

	ginkgo.It("should mask the authorization header", func() {
		h := http.Header{}
		h.Set("Authorization", "Bearer abc")
		h.Set("Content-Type", "application/json")

		filtered := filterSensitiveHeaders(h)

		gomega.Expect(filtered["Authorization"]).To(gomega.Equal("[FILTERED]"))
		gomega.Expect(filtered["Content-Type"]).To(gomega.Equal("application/json"))
	})
})

var _ = ginkgo.Describe("LoggingMiddleware", func() {
	ginkgo.It("should leave the request body readable downstream", func() {
		var seen string
		h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			seen = string(b)
			w.WriteHeader(http.StatusCreated)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"gateway":"A"}`)))

		gomega.Expect(seen).To(gomega.Equal(`{"gateway":"A"}`))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
	})
})

var _ = ginkgo.Describe("RecoveryMiddleware", func() {
	ginkgo.It("should answer 500 with an error body", func() {
		base := transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
		h := RecoveryMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"type"`))
	})
})

var _ = ginkgo.Describe("RequestID", func() {
	ginkgo.It("should keep a caller supplied trace id", func() {
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, "trace-123")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		gomega.Expect(rec.Header().Get(TraceHeader)).To(gomega.Equal("trace-123"))
	})
})

var _ = ginkgo.Describe("CORS", func() {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	ginkgo.It("should echo an allowed origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()

		CORS("https://app.example.com, https://admin.example.com")(next).ServeHTTP(rec, req)

		gomega.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(gomega.Equal("https://app.example.com"))
	})

	ginkgo.It("should ignore other origins", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		CORS("https://app.example.com")(next).ServeHTTP(rec, req)

		gomega.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(gomega.BeEmpty())
	})

	ginkgo.It("should short-circuit preflight", func() {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()

		CORS("*")(next).ServeHTTP(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(gomega.Equal("*"))
	})
})
