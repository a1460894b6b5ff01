package provisioning

import "time"

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Task records an activation the telecom backend has not acknowledged yet.
type Task struct {
	ID            int64      `gorm:"primaryKey" db:"id"`
	PhoneNumberID int64      `gorm:"column:phone_number_id;not null;index" db:"phone_number_id"`
	AccountID     int64      `gorm:"column:account_id;not null" db:"account_id"`
	Number        string     `gorm:"column:number;not null" db:"number"`
	Region        string     `gorm:"column:region;not null" db:"region"`
	Status        string     `gorm:"column:status;not null;index" db:"status"`
	Attempts      int        `gorm:"column:attempts;not null" db:"attempts"`
	LastError     string     `gorm:"column:last_error" db:"last_error"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null;index" db:"next_attempt_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at" db:"completed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" db:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" db:"updated_at"`
}

func (Task) TableName() string {
	return "provisioning_tasks"
}
