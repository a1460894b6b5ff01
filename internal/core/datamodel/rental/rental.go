package rental

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive = "active"
)

type Rental struct {
	ID               int64           `gorm:"primaryKey"`
	AccountID        int64           `gorm:"column:account_id;not null;index"`
	Number           string          `gorm:"column:number;not null"`
	Region           string          `gorm:"column:region;not null"`
	Duration         string          `gorm:"column:duration;not null"`
	Price            decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Status           string          `gorm:"column:status;not null"`
	ExpiresAt        time.Time       `gorm:"column:expires_at;not null"`
	ActivatedAt      time.Time       `gorm:"column:activated_at;not null"`
	PaymentReference string          `gorm:"column:payment_reference;not null"`
	PhoneNumberID    int64           `gorm:"column:phone_number_id;not null;index"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Rental) TableName() string {
	return "number_rentals"
}
