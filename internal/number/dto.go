package number

import (
	"strings"

	"github.com/frahmantamala/number-provisioning/internal"
	"github.com/frahmantamala/number-provisioning/internal/core/common/validation"
)

// ProvisionRequest is the inbound body. Everything but the payment reference and
// gateway is a fallback for metadata the gateway did not carry.
type ProvisionRequest struct {
	PaymentReference   string `json:"paymentReference"`
	Gateway            string `json:"gateway"`
	ResourceIdentifier string `json:"resourceIdentifier,omitempty"`
	Region             string `json:"region,omitempty"`
	Category           string `json:"category,omitempty"`
	BillingCycle       string `json:"billingCycle,omitempty"`
	Duration           string `json:"duration,omitempty"`
}

func (r *ProvisionRequest) Normalize() {
	r.PaymentReference = strings.TrimSpace(r.PaymentReference)
	r.Gateway = strings.TrimSpace(r.Gateway)
	r.ResourceIdentifier = strings.ReplaceAll(strings.TrimSpace(r.ResourceIdentifier), " ", "")
	r.Region = strings.ToUpper(strings.TrimSpace(r.Region))
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.BillingCycle = strings.ToLower(strings.TrimSpace(r.BillingCycle))
	r.Duration = strings.ToLower(strings.TrimSpace(r.Duration))
}

func (r ProvisionRequest) Validate() *internal.AppError {
	validator := validation.NewValidator()

	validator.Field("paymentReference", r.PaymentReference).Required().MaxLength(255)
	validator.Field("gateway", r.Gateway).Required().OneOf(internal.ErrCodeInvalidGateway, "A", "B", "capture", "order")
	// Fallback fields are only bounded here; their formats are checked by Reconcile
	// once it is known whether the gateway overrides them.
	validator.Field("resourceIdentifier", r.ResourceIdentifier).MaxLength(64)
	validator.Field("region", r.Region).MaxLength(64)
	validator.Field("category", r.Category).MaxLength(32)
	validator.Field("billingCycle", r.BillingCycle).MaxLength(32)
	validator.Field("duration", r.Duration).MaxLength(32)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
