package number

import (
	"errors"
	"time"

	numberdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/number"
)

const (
	CategoryStandard = "standard"
	CategoryRental   = "rental"
	CategoryOneTime  = "one_time"
)

// Orchestrator states, one run per provisioning request.
type State string

const (
	StateStart                State = "START"
	StateVerifying            State = "VERIFYING"
	StateReconciling          State = "RECONCILING"
	StateCheckingExisting     State = "CHECKING_EXISTING"
	StateProvisioningExternal State = "PROVISIONING_EXTERNAL"
	StateAllocating           State = "ALLOCATING"
	StateFulfilledNew         State = "FULFILLED_NEW"
	StateFulfilledExisting    State = "FULFILLED_EXISTING"
	StateRejected             State = "REJECTED"
	StateError                State = "ERROR"
)

var (
	// ErrAllocationConflict means another request committed the same (number, account) first.
	ErrAllocationConflict = errors.New("phone number already allocated to account")
	ErrAllocationFailed   = errors.New("phone number allocation failed")
	ErrMetadataIncomplete = errors.New("purchase metadata incomplete")
)

type PhoneNumber = numberdm.PhoneNumber

// View is the canonical JSON representation of an allocated number.
type View struct {
	ID                 int64      `json:"id"`
	ResourceIdentifier string     `json:"resourceIdentifier"`
	Region             string     `json:"region"`
	Category           string     `json:"category"`
	Status             string     `json:"status"`
	BillingID          int64      `json:"billingId"`
	Expiry             *time.Time `json:"expiry"`
	AutoRenew          bool       `json:"autoRenew"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func ToView(n *PhoneNumber) *View {
	if n == nil {
		return nil
	}
	var expiry *time.Time
	if n.ExpiresAt != nil {
		e := n.ExpiresAt.UTC()
		expiry = &e
	}
	return &View{
		ID:                 n.ID,
		ResourceIdentifier: n.Number,
		Region:             n.Region,
		Category:           n.Category,
		Status:             n.Status,
		BillingID:          n.BillingID,
		Expiry:             expiry,
		AutoRenew:          n.AutoRenew,
		CreatedAt:          n.CreatedAt.UTC(),
	}
}

// ProvisionResult is the terminal state of a successful run and the record it produced.
type ProvisionResult struct {
	State  State
	Number *PhoneNumber
}
