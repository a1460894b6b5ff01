package number_test

import (
	"errors"
	"strings"

	"github.com/frahmantamala/number-provisioning/internal/number"
	"github.com/frahmantamala/number-provisioning/internal/paymentgateway"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reconcile", func() {
	It("keeps gateway values when the caller disagrees", func() {
		gateway := paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "+14155550000",
			paymentgateway.MetaRegion:      "US",
		}
		caller := paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "+14165550000",
			paymentgateway.MetaRegion:      "CA",
		}

		p, err := number.Reconcile(gateway, caller)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.PhoneNumber).To(Equal("+14155550000"))
		Expect(p.Region).To(Equal("US"))
	})

	It("fills only the gaps from caller fields", func() {
		gateway := paymentgateway.Metadata{paymentgateway.MetaPhoneNumber: "+14155550000"}
		caller := paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "+14165550000",
			paymentgateway.MetaRegion:      "us",
			paymentgateway.MetaCategory:    "Rental",
			paymentgateway.MetaDuration:    "7D",
		}

		p, err := number.Reconcile(gateway, caller)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(number.Purchase{
			PhoneNumber: "+14155550000",
			Region:      "US",
			Category:    "rental",
			Duration:    "7d",
		}))
	})

	It("defaults the category", func() {
		p, err := number.Reconcile(paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "+14155550000",
			paymentgateway.MetaRegion:      "US",
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Category).To(Equal(number.CategoryStandard))
	})

	It("requires a number and a region", func() {
		_, err := number.Reconcile(nil, nil)
		Expect(errors.Is(err, number.ErrMetadataIncomplete)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("resourceIdentifier, region"))

		_, err = number.Reconcile(paymentgateway.Metadata{paymentgateway.MetaRegion: "US"}, nil)
		Expect(errors.Is(err, number.ErrMetadataIncomplete)).To(BeTrue())
	})

	It("rejects malformed gateway metadata", func() {
		_, err := number.Reconcile(paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "call-me-maybe-not-a-number-at-all-really-long",
			paymentgateway.MetaRegion:      "United States of America",
			paymentgateway.MetaCategory:    "premium",
		}, nil)
		Expect(errors.Is(err, number.ErrMetadataIncomplete)).To(BeTrue())

		var metaErr *number.MetadataError
		Expect(errors.As(err, &metaErr)).To(BeTrue())
		Expect(metaErr.Missing).To(BeEmpty())
		fields := map[string]string{}
		for _, v := range metaErr.Invalid {
			fields[v.Field] = v.Code
		}
		Expect(fields).To(HaveKeyWithValue("resourceIdentifier", "INVALID_PHONE_NUMBER"))
		Expect(fields).To(HaveKeyWithValue("region", "INVALID_REGION"))
		Expect(fields).To(HaveKey("category"))
		Expect(err.Error()).To(ContainSubstring("E.164"))
	})

	It("ignores a malformed caller value the gateway overrides", func() {
		gateway := paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "+14155550000",
			paymentgateway.MetaRegion:      "US",
		}
		caller := paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "4155550000",
			paymentgateway.MetaRegion:      "USA",
		}

		p, err := number.Reconcile(gateway, caller)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.PhoneNumber).To(Equal("+14155550000"))
		Expect(p.Region).To(Equal("US"))
	})

	It("rejects a malformed caller value that fills a gap", func() {
		gateway := paymentgateway.Metadata{paymentgateway.MetaPhoneNumber: "+14155550000"}
		caller := paymentgateway.Metadata{paymentgateway.MetaRegion: "USA"}

		_, err := number.Reconcile(gateway, caller)
		var metaErr *number.MetadataError
		Expect(errors.As(err, &metaErr)).To(BeTrue())
		Expect(metaErr.Invalid).To(HaveLen(1))
		Expect(metaErr.Invalid[0].Field).To(Equal("region"))
	})

	It("rejects rentals longer than the maximum window", func() {
		_, err := number.Reconcile(paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "+14155550000",
			paymentgateway.MetaRegion:      "US",
			paymentgateway.MetaCategory:    "rental",
			paymentgateway.MetaDuration:    "200000d",
		}, nil)
		var metaErr *number.MetadataError
		Expect(errors.As(err, &metaErr)).To(BeTrue())
		Expect(metaErr.Invalid[0].Field).To(Equal("duration"))
		Expect(metaErr.Invalid[0].Message).To(ContainSubstring("3650 days"))

		p, err := number.Reconcile(paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "+14155550000",
			paymentgateway.MetaRegion:      "US",
			paymentgateway.MetaCategory:    "rental",
			paymentgateway.MetaDuration:    "3650d",
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Duration).To(Equal("3650d"))
	})
})

var _ = Describe("ProvisionRequest", func() {
	It("maps fallback fields onto canonical metadata", func() {
		req := number.ProvisionRequest{ResourceIdentifier: "+14155550000", Region: "US"}
		Expect(req.CallerFields()).To(Equal(paymentgateway.Metadata{
			paymentgateway.MetaPhoneNumber: "+14155550000",
			paymentgateway.MetaRegion:      "US",
		}))
	})

	It("leaves fallback formats to reconciliation and only bounds their length", func() {
		req := number.ProvisionRequest{PaymentReference: "pay_1", Gateway: "B"}
		Expect(req.Validate()).To(BeNil())

		req.ResourceIdentifier = "4155550000"
		req.Region = "USA"
		Expect(req.Validate()).To(BeNil())

		req.Duration = strings.Repeat("9", 33)
		appErr := req.Validate()
		Expect(appErr).NotTo(BeNil())
		Expect(appErr.GetDetailedMessage()).To(ContainSubstring("duration"))
	})
})
