package number

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/number-provisioning/internal"
	"github.com/frahmantamala/number-provisioning/internal/core/common/validation"
	"github.com/frahmantamala/number-provisioning/internal/paymentgateway"
)

// Purchase is the reconciled description of what was bought.
type Purchase struct {
	PhoneNumber  string
	Region       string
	Category     string
	BillingCycle string
	Duration     string
}

// CallerFields converts the request's fallback fields into canonical metadata.
func (r ProvisionRequest) CallerFields() paymentgateway.Metadata {
	return paymentgateway.NormalizeMetadata(map[string]string{
		paymentgateway.MetaPhoneNumber:  r.ResourceIdentifier,
		paymentgateway.MetaRegion:       r.Region,
		paymentgateway.MetaCategory:     r.Category,
		paymentgateway.MetaBillingCycle: r.BillingCycle,
		paymentgateway.MetaDuration:     r.Duration,
	})
}

// MetadataError describes why reconciled metadata cannot drive an allocation.
type MetadataError struct {
	Missing []string
	Invalid []internal.ValidationError
}

func (e *MetadataError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	for _, v := range e.Invalid {
		parts = append(parts, v.Message)
	}
	return fmt.Sprintf("%s: %s", ErrMetadataIncomplete, strings.Join(parts, "; "))
}

func (e *MetadataError) Unwrap() error { return ErrMetadataIncomplete }

// Reconcile merges gateway metadata with caller fields. Gateway values always win;
// caller values only fill keys the gateway left empty. Formats are checked on the
// merged result, so a caller value the gateway overrides is never inspected.
func Reconcile(gateway, caller paymentgateway.Metadata) (Purchase, error) {
	pick := func(key string) string {
		if v := strings.TrimSpace(gateway.Get(key)); v != "" {
			return v
		}
		return strings.TrimSpace(caller.Get(key))
	}

	p := Purchase{
		PhoneNumber:  strings.ReplaceAll(pick(paymentgateway.MetaPhoneNumber), " ", ""),
		Region:       strings.ToUpper(pick(paymentgateway.MetaRegion)),
		Category:     strings.ToLower(pick(paymentgateway.MetaCategory)),
		BillingCycle: strings.ToLower(pick(paymentgateway.MetaBillingCycle)),
		Duration:     strings.ToLower(pick(paymentgateway.MetaDuration)),
	}

	var missing []string
	if p.PhoneNumber == "" {
		missing = append(missing, "resourceIdentifier")
	}
	if p.Region == "" {
		missing = append(missing, "region")
	}
	if len(missing) > 0 {
		return Purchase{}, &MetadataError{Missing: missing}
	}

	if p.Category == "" {
		p.Category = CategoryStandard
	}
	if appErr := p.validate(); appErr != nil {
		details, _ := appErr.Details.(internal.ValidationErrors)
		return Purchase{}, &MetadataError{Invalid: details.Errors}
	}
	return p, nil
}

func (p Purchase) validate() *internal.AppError {
	validator := validation.NewValidator()

	validator.Field("resourceIdentifier", p.PhoneNumber).MaxLength(16).PhoneNumber()
	validator.Field("region", p.Region).Region()
	validator.Field("category", p.Category).OneOf(internal.ErrCodeValidationFailed, CategoryStandard, CategoryRental, CategoryOneTime)
	validator.Field("billingCycle", p.BillingCycle).MaxLength(32)
	validator.Field("duration", p.Duration).MaxLength(32).Custom(p.checkDuration)

	return validator.Validate()
}

// checkDuration rejects a rental window longer than MaxDurationDays instead of
// letting ComputeValidity clamp it silently.
func (p Purchase) checkDuration(interface{}) *internal.AppError {
	if p.Category != CategoryRental && p.Category != CategoryOneTime {
		return nil
	}
	label := p.Duration
	if label == "" {
		label = p.BillingCycle
	}
	if _, err := parseDurationDays(label); err != nil {
		message := fmt.Sprintf("duration must not exceed %d days", MaxDurationDays)
		return internal.NewValidationFieldError("duration", message, internal.ErrCodeValidationFailed)
	}
	return nil
}
