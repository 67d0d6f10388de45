package models

import (
	"context"
	"errors"
	"time"

	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegisterStatus string

const (
	RegisterStatusOpen   RegisterStatus = "Open"
	RegisterStatusClosed RegisterStatus = "Closed"
)

// Register is a point-of-sale till. A register is opened by exactly one
// operator; sales are only accepted on a register the requesting operator
// opened. No ambient "current register": callers pass the register id
// explicitly on every sale.
type Register struct {
	ID         int            `gorm:"primary_key" json:"id"`
	Name       string         `gorm:"size:100;uniqueIndex;not null" json:"name" binding:"required"`
	Status     RegisterStatus `gorm:"type:enum('Open','Closed');not null;default:'Closed'" json:"status"`
	OpenedById int            `gorm:"index;default:null" json:"opened_by_id"`
	OpenedAt   *time.Time     `json:"opened_at"`
	ClosedAt   *time.Time     `json:"closed_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func CreateRegister(ctx context.Context, name string) (*Register, error) {
	if err := utils.ValidateUnique[Register](ctx, "name", name, 0); err != nil {
		return nil, err
	}
	register := Register{Name: name, Status: RegisterStatusClosed}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&register).Error; err != nil {
		return nil, err
	}
	return &register, nil
}

func OpenRegister(ctx context.Context, registerId int, operatorId int) (*Register, error) {
	db := config.GetDB()
	var register Register
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&register, registerId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if register.Status == RegisterStatusOpen {
			return errors.New("register is already open")
		}
		now := time.Now()
		return tx.Model(&register).Updates(map[string]interface{}{
			"Status":     RegisterStatusOpen,
			"OpenedById": operatorId,
			"OpenedAt":   &now,
			"ClosedAt":   nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &register, nil
}

func CloseRegister(ctx context.Context, registerId int, operatorId int) (*Register, error) {
	db := config.GetDB()
	var register Register
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&register, registerId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if register.Status != RegisterStatusOpen {
			return ErrRegisterNotOpen
		}
		if register.OpenedById != operatorId {
			return ErrRegisterOwnershipMismatch
		}
		now := time.Now()
		return tx.Model(&register).Updates(map[string]interface{}{
			"Status":   RegisterStatusClosed,
			"ClosedAt": &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &register, nil
}

// CheckSellable validates the register against the requesting operator.
func (r *Register) CheckSellable(operatorId int) error {
	if r.Status != RegisterStatusOpen {
		return ErrRegisterNotOpen
	}
	if r.OpenedById != operatorId {
		return ErrRegisterOwnershipMismatch
	}
	return nil
}
