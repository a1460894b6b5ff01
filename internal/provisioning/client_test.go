package provisioning_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frahmantamala/number-provisioning/internal/provisioning"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestProvisioning(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Provisioning Suite")
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		client  *provisioning.Client
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		client = provisioning.NewClient(provisioning.Config{
			BaseURL: server.URL,
			APIKey:  "telecom-key",
			Timeout: 200 * time.Millisecond,
		}, testLogger)
	})

	AfterEach(func() {
		server.Close()
	})

	It("posts the number and region and returns the acknowledgement", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/v1/numbers/activate"))
			Expect(r.Header.Get("X-API-Key")).To(Equal("telecom-key"))

			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body).To(Equal(map[string]string{"phone_number": "+14155550000", "region": "US"}))

			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"reference":"act_1","status":"active"}`))
		}

		ack, err := client.Activate(context.Background(), "+14155550000", "US")
		Expect(err).NotTo(HaveOccurred())
		Expect(ack).To(Equal(&provisioning.Ack{Reference: "act_1", Status: "active"}))
	})

	It("accepts an empty success body", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}

		ack, err := client.Activate(context.Background(), "+14155550000", "US")
		Expect(err).NotTo(HaveOccurred())
		Expect(ack.Status).To(Equal("accepted"))
	})

	It("classifies a non-2xx response as a failure", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte("number already assigned"))
		}

		_, err := client.Activate(context.Background(), "+14155550000", "US")
		Expect(errors.Is(err, provisioning.ErrActivationFailed)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("number already assigned"))
	})

	It("classifies a slow backend as a timeout", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}

		_, err := client.Activate(context.Background(), "+14155550000", "US")
		Expect(errors.Is(err, provisioning.ErrActivationTimeout)).To(BeTrue())
	})

	It("classifies an unreachable backend as a failure", func() {
		server.Close()

		_, err := client.Activate(context.Background(), "+14155550000", "US")
		Expect(errors.Is(err, provisioning.ErrActivationFailed)).To(BeTrue())
	})
})
