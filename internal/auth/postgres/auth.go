package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/number-provisioning/internal/auth"
	accountdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/account"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*accountdm.Account, error) {
	var account accountdm.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Create is used by the seed command.
func (r *Repository) Create(ctx context.Context, account *accountdm.Account) error {
	return r.db.WithContext(ctx).
		Where(accountdm.Account{Email: account.Email}).
		FirstOrCreate(account).Error
}
