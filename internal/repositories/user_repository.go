package repositories

import (
	"context"
	"time"

	"foodorder/internal/models"
)

// UserRepository defines the interface for customer account access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	// SetOTP stores the code hash and its expiry in one write.
	SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	// ResetPassword stores the new password hash and clears the OTP fields in one write.
	ResetPassword(ctx context.Context, id, passwordHash string) error
	// RecordOTPFailure counts a wrong guess and clears the code once limit
	// guesses have failed. It reports whether the code was cleared.
	RecordOTPFailure(ctx context.Context, id string, limit int) (bool, error)
}

// AdminRepository defines the interface for admin account access.
type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetByID(ctx context.Context, id string) (*models.Admin, error)
}
