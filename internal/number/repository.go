package number

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Allocation is everything the allocator writes in one transaction.
type Allocation struct {
	AccountID        int64
	Purchase         Purchase
	Validity         Validity
	PaymentReference string
	Gateway          string
	Amount           decimal.Decimal
	Currency         string
	ActivatedAt      time.Time
	// ActivationError is set when the telecom backend did not acknowledge the
	// activation. The allocator then queues a provisioning task in the same transaction.
	ActivationError string
}

type AllocationResult struct {
	Number *PhoneNumber
	// TaskID is the queued provisioning task, zero when activation succeeded.
	TaskID int64
}

type Repository interface {
	// FindByNumber returns nil, nil when the account does not own the number.
	FindByNumber(ctx context.Context, number string, accountID int64) (*PhoneNumber, error)
	// Allocate returns ErrAllocationConflict when the (number, account) pair already exists.
	Allocate(ctx context.Context, a Allocation) (*AllocationResult, error)
}
