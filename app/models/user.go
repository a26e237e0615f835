package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	ROLE_CUSTOMER = "customer"
	ROLE_ADMIN    = "admin"
)

type User struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string     `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email        string     `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	PasswordHash string     `gorm:"type:text" json:"-" validate:"required"`
	Phone        string     `gorm:"type:varchar(32);default:null" json:"phone,omitempty"`
	Role         string     `gorm:"type:varchar(20);default:'customer'" json:"role" validate:"oneof=customer admin"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time `gorm:"type:timestamp;default:null" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func NewUserID() string {
	return "user-" + uuid.NewString()
}

// CreateUser builds a validated customer account with a hashed password.
func CreateUser(name, email, password, phone string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           NewUserID(),
		Name:         name,
		Email:        email,
		PasswordHash: pw,
		Phone:        phone,
		Role:         ROLE_CUSTOMER,
		IsActive:     true,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
