package number_test

import (
	"time"

	"github.com/frahmantamala/number-provisioning/internal/number"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ComputeValidity", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2026, 1, 31, 9, 30, 0, 0, time.UTC)
	})

	It("expires a 7 day rental exactly 7 days later", func() {
		v := number.ComputeValidity(number.Purchase{Category: number.CategoryRental, Duration: "7d"}, now)
		Expect(v.ExpiresAt).NotTo(BeNil())
		Expect(*v.ExpiresAt).To(Equal(now.Add(7 * 24 * time.Hour)))
		Expect(v.PeriodStart).To(Equal(now))
		Expect(v.PeriodEnd).To(Equal(*v.ExpiresAt))
		Expect(v.AutoRenew).To(BeFalse())
		Expect(v.DurationLabel).To(Equal("7d"))
		Expect(v.BillingCycle).To(Equal("one_time"))
	})

	It("treats monthly as 30 days, not a calendar month", func() {
		v := number.ComputeValidity(number.Purchase{Category: number.CategoryRental, Duration: "monthly"}, now)
		Expect(*v.ExpiresAt).To(Equal(time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)))
	})

	It("defaults one-time purchases without a duration to 30 days", func() {
		v := number.ComputeValidity(number.Purchase{Category: number.CategoryOneTime}, now)
		Expect(*v.ExpiresAt).To(Equal(now.Add(30 * 24 * time.Hour)))
		Expect(v.DurationLabel).To(Equal("30d"))
	})

	It("gives subscriptions no expiry and a 30 day billing period", func() {
		v := number.ComputeValidity(number.Purchase{Category: number.CategoryStandard}, now)
		Expect(v.ExpiresAt).To(BeNil())
		Expect(v.AutoRenew).To(BeTrue())
		Expect(v.PeriodEnd).To(Equal(now.Add(30 * 24 * time.Hour)))
		Expect(v.BillingCycle).To(Equal("monthly"))
	})

	It("allows a rental of exactly the maximum window", func() {
		v := number.ComputeValidity(number.Purchase{Category: number.CategoryRental, Duration: "3650d"}, now)
		Expect(*v.ExpiresAt).To(Equal(now.Add(number.MaxDurationDays * 24 * time.Hour)))
	})

	It("clamps oversized durations instead of wrapping into the past", func() {
		for _, label := range []string{"200000d", "99999999999w", "999999999999999999999"} {
			v := number.ComputeValidity(number.Purchase{Category: number.CategoryRental, Duration: label}, now)
			Expect(v.ExpiresAt.After(now)).To(BeTrue(), label)
			Expect(*v.ExpiresAt).To(Equal(now.Add(number.MaxDurationDays * 24 * time.Hour)), label)
		}
	})
})

var _ = DescribeTable("ParseDurationDays",
	func(label string, days int) {
		Expect(number.ParseDurationDays(label)).To(Equal(days))
	},
	Entry("days", "7d", 7),
	Entry("weeks", "2w", 14),
	Entry("months", "3m", 90),
	Entry("bare number", "10", 10),
	Entry("monthly", "monthly", 30),
	Entry("empty", "", 30),
	Entry("unknown unit", "5y", 30),
	Entry("garbage", "forever", 30),
	Entry("zero", "0d", 30),
	Entry("maximum", "3650d", 3650),
	Entry("just over the maximum", "3651d", 3650),
	Entry("months over the maximum", "122m", 3650),
	Entry("overflowing count", "99999999999999999999d", 3650),
	Entry("negative", "-5d", 30),
)
