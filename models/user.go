package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/utils"
)

// User is an operator account. Authentication/authorization live outside
// this core; workflows receive an already-authorized operator id.
type User struct {
	ID       int    `gorm:"primary_key" json:"id"`
	PublicId string `gorm:"size:36;uniqueIndex;not null" json:"public_id"`
	Username string `gorm:"size:100;uniqueIndex;not null" json:"username" binding:"required"`
	Password string `gorm:"size:255;not null" json:"-"`
	Name     string `gorm:"size:100;not null" json:"name" binding:"required"`
	IsAdmin  *bool  `gorm:"not null;default:false" json:"is_admin"`
	IsActive *bool  `gorm:"not null;default:true" json:"is_active"`
	SoftDelete
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	IsAdmin  *bool  `json:"is_admin"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	if err := utils.ValidateUnique[User](ctx, "username", input.Username, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		PublicId: uuid.NewString(),
		Username: input.Username,
		Password: string(hashed),
		Name:     input.Name,
		IsAdmin:  input.IsAdmin,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

func VerifyUserPassword(ctx context.Context, username string, password string) (*User, error) {
	user, err := GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("user is inactive")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errors.New("invalid credentials")
	}
	return user, nil
}
