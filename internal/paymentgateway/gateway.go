package paymentgateway

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownGateway    = errors.New("unknown payment gateway")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrPaymentGateway    = errors.New("payment gateway error")
	ErrPaymentIncomplete = errors.New("payment not completed")
)

// Tag identifies which gateway issued a payment reference.
type Tag string

const (
	TagCapture Tag = "A"
	TagOrder   Tag = "B"
)

// ParseTag accepts the wire tags "A" and "B" and their aliases "capture" and "order".
func ParseTag(raw string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "a", "capture":
		return TagCapture, nil
	case "b", "order":
		return TagOrder, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGateway, raw)
	}
}

func (t Tag) String() string {
	switch t {
	case TagCapture:
		return "capture"
	case TagOrder:
		return "order"
	default:
		return string(t)
	}
}

type Reference struct {
	ID      string
	Gateway Tag
}

// Canonical metadata keys.
const (
	MetaPhoneNumber  = "phone_number"
	MetaRegion       = "region"
	MetaCategory     = "category"
	MetaBillingCycle = "billing_cycle"
	MetaDuration     = "duration"
)

var metadataAliases = map[string]string{
	"phone_number":        MetaPhoneNumber,
	"phonenumber":         MetaPhoneNumber,
	"resourceidentifier":  MetaPhoneNumber,
	"resource_identifier": MetaPhoneNumber,
	"number":              MetaPhoneNumber,
	"region":              MetaRegion,
	"country":             MetaRegion,
	"countrycode":         MetaRegion,
	"country_code":        MetaRegion,
	"category":            MetaCategory,
	"pillar":              MetaCategory,
	"billing_cycle":       MetaBillingCycle,
	"billingcycle":        MetaBillingCycle,
	"cadence":             MetaBillingCycle,
	"duration":            MetaDuration,
}

// Metadata is purchase metadata keyed by canonical names.
type Metadata map[string]string

// NormalizeMetadata maps gateway-specific key spellings onto canonical keys.
// Blank values are dropped so they never shadow caller-supplied fields. When
// several spellings carry the same key, the canonical spelling wins, then the
// alias that sorts first.
func NormalizeMetadata(raw map[string]string) Metadata {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := Metadata{}
	for _, canonicalOnly := range []bool{true, false} {
		for _, k := range keys {
			v := strings.TrimSpace(raw[k])
			if v == "" {
				continue
			}
			spelling := strings.ToLower(strings.TrimSpace(k))
			key, ok := metadataAliases[spelling]
			if !ok || (canonicalOnly && spelling != key) {
				continue
			}
			if _, exists := out[key]; exists {
				continue
			}
			out[key] = v
		}
	}
	return out
}

func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// VerifiedPayment is the gateway-neutral result of a verification.
type VerifiedPayment struct {
	Reference Reference
	Succeeded bool
	Status    string
	Amount    decimal.Decimal
	Currency  string
	Metadata  Metadata
}

type Verifier interface {
	Verify(ctx context.Context, paymentID string) (*VerifiedPayment, error)
}

// Registry dispatches verification to the strategy registered for a tag.
type Registry struct {
	verifiers map[Tag]Verifier
}

func NewRegistry() *Registry {
	return &Registry{verifiers: map[Tag]Verifier{}}
}

func (r *Registry) Register(tag Tag, v Verifier) *Registry {
	if v != nil {
		r.verifiers[tag] = v
	}
	return r
}

func (r *Registry) Supports(tag Tag) bool {
	if r == nil {
		return false
	}
	_, ok := r.verifiers[tag]
	return ok
}

// Verify resolves the reference against its gateway. A payment the gateway knows
// but has not completed yields ErrPaymentIncomplete.
func (r *Registry) Verify(ctx context.Context, ref Reference) (*VerifiedPayment, error) {
	if r == nil {
		return nil, ErrUnknownGateway
	}
	v, ok := r.verifiers[ref.Gateway]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, string(ref.Gateway))
	}
	if strings.TrimSpace(ref.ID) == "" {
		return nil, ErrPaymentNotFound
	}

	payment, err := v.Verify(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	payment.Reference = ref
	if payment.Metadata == nil {
		payment.Metadata = Metadata{}
	}
	if !payment.Succeeded {
		return payment, fmt.Errorf("%w: status %q", ErrPaymentIncomplete, payment.Status)
	}
	return payment, nil
}
