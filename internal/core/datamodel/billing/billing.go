package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive = "active"

	CycleMonthly = "monthly"
	CycleOneTime = "one_time"
)

// Billing is one purchase cycle. Rows are only ever inserted by the allocator.
type Billing struct {
	ID               int64           `gorm:"primaryKey"`
	AccountID        int64           `gorm:"column:account_id;not null;index"`
	PaymentReference string          `gorm:"column:payment_reference;not null;index"`
	Gateway          string          `gorm:"column:gateway;not null"`
	Category         string          `gorm:"column:category;not null"`
	BillingCycle     string          `gorm:"column:billing_cycle;not null"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         string          `gorm:"column:currency;not null"`
	Status           string          `gorm:"column:status;not null"`
	PeriodStart      time.Time       `gorm:"column:period_start;not null"`
	PeriodEnd        time.Time       `gorm:"column:period_end;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Billing) TableName() string {
	return "billings"
}
