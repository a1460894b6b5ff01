package number

import "time"

const (
	StatusActive = "active"
)

// PhoneNumber is the leased number owned by an account. (number, account_id) is unique.
type PhoneNumber struct {
	ID        int64      `gorm:"primaryKey"`
	AccountID int64      `gorm:"column:account_id;not null;uniqueIndex:ux_phone_numbers_number_account,priority:2"`
	Number    string     `gorm:"column:number;not null;uniqueIndex:ux_phone_numbers_number_account,priority:1"`
	Region    string     `gorm:"column:region;not null"`
	Category  string     `gorm:"column:category;not null"`
	BillingID int64      `gorm:"column:billing_id;not null;index"`
	Status    string     `gorm:"column:status;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	AutoRenew bool       `gorm:"column:auto_renew;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (PhoneNumber) TableName() string {
	return "phone_numbers"
}
