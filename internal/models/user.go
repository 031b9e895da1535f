package models

import "time"

// Roles carried in tokens and stored on accounts.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is a customer account.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Password  string    `json:"-" gorm:"type:varchar(255)"`
	Phone     string    `json:"phone" gorm:"type:varchar(32)"`
	Address   string    `json:"address"`
	Role      string    `json:"role" gorm:"type:varchar(20);default:customer"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// OTPHash and OTPExpiresAt are always written and cleared together.
	// OTPAttempts counts wrong guesses against the current code.
	OTPHash      string     `json:"-" gorm:"column:otp_hash;type:varchar(255)"`
	OTPExpiresAt *time.Time `json:"-" gorm:"column:otp_expires_at"`
	OTPAttempts  int        `json:"-" gorm:"column:otp_attempts;default:0"`
}
