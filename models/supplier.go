package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Supplier owns consignment items and receives a share of sale proceeds.
// CreditPercentageInStore and CashRedemptionPercentage are the two payout
// splits; their sum must not exceed 100. Items sold on commission read the
// *current* values at sale time and freeze them per item.
type Supplier struct {
	ID                       int             `gorm:"primary_key" json:"id"`
	PublicId                 string          `gorm:"size:36;uniqueIndex;not null" json:"public_id"`
	Code                     string          `gorm:"size:10;uniqueIndex;not null" json:"code" binding:"required"`
	Name                     string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Email                    string          `gorm:"size:100" json:"email"`
	Phone                    string          `gorm:"size:20" json:"phone"`
	Notes                    string          `gorm:"type:text" json:"notes"`
	CreditPercentageInStore  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit_percentage_in_store"`
	CashRedemptionPercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cash_redemption_percentage"`
	IsActive                 *bool           `gorm:"not null;default:true" json:"is_active"`
	SoftDelete
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Code                     string          `json:"code" binding:"required"`
	Name                     string          `json:"name" binding:"required"`
	Email                    string          `json:"email"`
	Phone                    string          `json:"phone"`
	Notes                    string          `json:"notes"`
	CreditPercentageInStore  decimal.Decimal `json:"credit_percentage_in_store"`
	CashRedemptionPercentage decimal.Decimal `json:"cash_redemption_percentage"`
}

const supplierListCacheKey = "AllSupplierList"

func (input *NewSupplier) validate(ctx context.Context, id int) error {
	if !utils.IsValidPercentage(input.CreditPercentageInStore) ||
		!utils.IsValidPercentage(input.CashRedemptionPercentage) {
		return errors.New("payout percentages must be between 0 and 100")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.PhoneRegion); err != nil {
			return errors.New("invalid phone number")
		}
	}
	if input.CreditPercentageInStore.Add(input.CashRedemptionPercentage).GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("payout percentages must not exceed 100 combined")
	}
	if err := utils.ValidateUnique[Supplier](ctx, "code", input.Code, id); err != nil {
		return err
	}
	return nil
}

// CommissionPercentage is the combined share the shop withholds ledger-side
// bookkeeping for: credit share + cash share.
func (s *Supplier) CommissionPercentage() decimal.Decimal {
	return s.CreditPercentageInStore.Add(s.CashRedemptionPercentage)
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	supplier := Supplier{
		PublicId:                 uuid.NewString(),
		Code:                     input.Code,
		Name:                     input.Name,
		Email:                    input.Email,
		Phone:                    input.Phone,
		Notes:                    input.Notes,
		CreditPercentageInStore:  input.CreditPercentageInStore,
		CashRedemptionPercentage: input.CashRedemptionPercentage,
		IsActive:                 utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	config.RemoveRedisKey(supplierListCacheKey)
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(supplier).
		Updates(map[string]interface{}{
			"Code":                     input.Code,
			"Name":                     input.Name,
			"Email":                    input.Email,
			"Phone":                    input.Phone,
			"Notes":                    input.Notes,
			"CreditPercentageInStore":  input.CreditPercentageInStore,
			"CashRedemptionPercentage": input.CashRedemptionPercentage,
		}).Error; err != nil {
		return nil, err
	}
	config.RemoveRedisKey(supplierListCacheKey)
	return supplier, nil
}

// DeleteSupplier soft-deletes. A supplier with outstanding store credit or
// a positive cash balance cannot be deleted.
func DeleteSupplier(ctx context.Context, id int) (*Supplier, error) {

	supplier, err := utils.FetchModel[Supplier](ctx, id)
	if err != nil {
		return nil, err
	}

	available, err := AvailableStoreCredit(ctx, id)
	if err != nil {
		return nil, err
	}
	if available.GreaterThan(decimal.Zero) {
		return nil, errors.New("supplier has outstanding store credit")
	}
	cash, err := CashBalance(ctx, id)
	if err != nil {
		return nil, err
	}
	if cash.GreaterThan(decimal.Zero) {
		return nil, errors.New("supplier has outstanding cash balance")
	}

	operatorName, _ := utils.GetOperatorNameFromContext(ctx)
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(supplier).Update("DeletedBy", operatorName).Error; err != nil {
			return err
		}
		return tx.Delete(supplier).Error
	})
	if err != nil {
		return nil, err
	}
	config.RemoveRedisKey(supplierListCacheKey)
	return supplier, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	return utils.FetchModel[Supplier](ctx, id)
}

func GetSuppliers(ctx context.Context, name *string) ([]*Supplier, error) {

	db := config.GetDB()
	var results []*Supplier

	// name filter bypasses the cache
	if name == nil || *name == "" {
		if found, err := config.GetRedisObject(supplierListCacheKey, &results); err == nil && found {
			return results, nil
		}
	}

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	if name == nil || *name == "" {
		config.SetRedisObject(supplierListCacheKey, results, 0)
	}
	return results, nil
}
