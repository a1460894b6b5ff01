package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	billingdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/billing"
	numberdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/number"
	provisioningdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/provisioning"
	rentaldm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/rental"
	"github.com/frahmantamala/number-provisioning/internal/number"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// NumberRepository implements number.Repository using GORM
type NumberRepository struct {
	db *gorm.DB
}

func NewNumberRepository(db *gorm.DB) *NumberRepository {
	return &NumberRepository{db: db}
}

func (r *NumberRepository) FindByNumber(ctx context.Context, phoneNumber string, accountID int64) (*number.PhoneNumber, error) {
	var pn numberdm.PhoneNumber
	err := r.db.WithContext(ctx).
		Where("number = ? AND account_id = ?", phoneNumber, accountID).
		First(&pn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pn, nil
}

// Allocate writes the billing, phone number, optional rental and optional
// provisioning task rows in a single transaction. Nothing is committed on error.
func (r *NumberRepository) Allocate(ctx context.Context, a number.Allocation) (*number.AllocationResult, error) {
	result := &number.AllocationResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill := &billingdm.Billing{
			AccountID:        a.AccountID,
			PaymentReference: a.PaymentReference,
			Gateway:          a.Gateway,
			Category:         a.Purchase.Category,
			BillingCycle:     a.Validity.BillingCycle,
			Amount:           a.Amount,
			Currency:         a.Currency,
			Status:           billingdm.StatusActive,
			PeriodStart:      a.Validity.PeriodStart,
			PeriodEnd:        a.Validity.PeriodEnd,
		}
		if err := tx.Create(bill).Error; err != nil {
			return fmt.Errorf("create billing: %w", err)
		}

		pn := &numberdm.PhoneNumber{
			AccountID: a.AccountID,
			Number:    a.Purchase.PhoneNumber,
			Region:    a.Purchase.Region,
			Category:  a.Purchase.Category,
			BillingID: bill.ID,
			Status:    numberdm.StatusActive,
			ExpiresAt: a.Validity.ExpiresAt,
			AutoRenew: a.Validity.AutoRenew,
		}
		if err := tx.Create(pn).Error; err != nil {
			return fmt.Errorf("create phone number: %w", err)
		}

		if a.Purchase.Category == number.CategoryRental {
			rent := &rentaldm.Rental{
				AccountID:        a.AccountID,
				Number:           pn.Number,
				Region:           pn.Region,
				Duration:         a.Validity.DurationLabel,
				Price:            a.Amount,
				Status:           rentaldm.StatusActive,
				ExpiresAt:        *a.Validity.ExpiresAt,
				ActivatedAt:      a.ActivatedAt,
				PaymentReference: a.PaymentReference,
				PhoneNumberID:    pn.ID,
			}
			if err := tx.Create(rent).Error; err != nil {
				return fmt.Errorf("create rental: %w", err)
			}
		}

		if a.ActivationError != "" {
			task := &provisioningdm.Task{
				PhoneNumberID: pn.ID,
				AccountID:     a.AccountID,
				Number:        pn.Number,
				Region:        pn.Region,
				Status:        provisioningdm.StatusPending,
				LastError:     a.ActivationError,
				NextAttemptAt: a.ActivatedAt,
			}
			if err := tx.Create(task).Error; err != nil {
				return fmt.Errorf("queue provisioning task: %w", err)
			}
			result.TaskID = task.ID
		}

		result.Number = pn
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", number.ErrAllocationConflict, a.Purchase.PhoneNumber)
		}
		return nil, fmt.Errorf("%w: %v", number.ErrAllocationFailed, err)
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite without gorm error translation
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
