package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frahmantamala/number-provisioning/internal/observability"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservability(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Observability Suite")
}

var _ = Describe("Metrics", func() {
	It("counts provisioning outcomes and activation results", func() {
		metrics := observability.NewMetrics(prometheus.NewRegistry())

		metrics.ProvisionOutcome(observability.OutcomeFulfilledNew)
		metrics.ProvisionOutcome(observability.OutcomeFulfilledNew)
		metrics.ProvisionOutcome(observability.OutcomeRejected)
		metrics.ActivationResult(observability.ActivationDeferred)

		Expect(testutil.ToFloat64(metrics.Provisions().WithLabelValues(observability.OutcomeFulfilledNew))).To(Equal(2.0))
		Expect(testutil.ToFloat64(metrics.Provisions().WithLabelValues(observability.OutcomeRejected))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.Activations().WithLabelValues(observability.ActivationDeferred))).To(Equal(1.0))
	})

	It("is a no-op when nil", func() {
		var metrics *observability.Metrics
		Expect(func() {
			metrics.ProvisionOutcome(observability.OutcomeError)
			metrics.ActivationResult(observability.ActivationFailed)
			metrics.EventObserved("number.provisioned")
		}).NotTo(Panic())
	})

	It("exposes the registry over HTTP", func() {
		metrics := observability.NewMetrics(prometheus.NewRegistry())
		metrics.EventObserved("number.provisioned")

		rec := httptest.NewRecorder()
		metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		body, _ := io.ReadAll(rec.Body)
		Expect(string(body)).To(ContainSubstring(`number_events_total{type="number.provisioned"} 1`))
	})
})
