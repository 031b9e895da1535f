package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"foodorder/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(ErrDuplicate, "user with email %s", user.Email)
		}
		return errors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "user with email %s", email)
		}
		return nil, errors.Wrapf(err, "failed to get user by email %s", email)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "user with ID %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get user by ID %s", id)
	}
	return &user, nil
}

// GetAll lists every customer, newest first.
func (r *GORMUserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	return users, nil
}

// UpdateProfile writes the editable profile fields and the password hash.
func (r *GORMUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"name":     user.Name,
		"phone":    user.Phone,
		"address":  user.Address,
		"password": user.Password,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to update user profile")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "user with ID %s", user.ID)
	}
	return nil
}

// SetOTP stores a hashed reset code together with its expiry.
func (r *GORMUserRepository) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"otp_hash":       otpHash,
		"otp_expires_at": expiresAt,
		"otp_attempts":   0,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to store otp")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "user with ID %s", id)
	}
	return nil
}

// ResetPassword replaces the password hash and clears the reset code.
func (r *GORMUserRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password":       passwordHash,
		"otp_hash":       "",
		"otp_expires_at": nil,
		"otp_attempts":   0,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to reset password")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "user with ID %s", id)
	}
	return nil
}

// RecordOTPFailure increments the failed-guess counter and burns the code when
// it reaches limit.
func (r *GORMUserRepository) RecordOTPFailure(ctx context.Context, id string, limit int) (bool, error) {
	burned := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", id).
			Update("otp_attempts", gorm.Expr("otp_attempts + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(ErrNotFound, "user with ID %s", id)
		}

		res = tx.Model(&models.User{}).Where("id = ? AND otp_attempts >= ?", id, limit).Updates(map[string]interface{}{
			"otp_hash":       "",
			"otp_expires_at": nil,
			"otp_attempts":   0,
		})
		if res.Error != nil {
			return res.Error
		}
		burned = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, err
		}
		return false, errors.Wrap(err, "failed to record otp failure")
	}
	return burned, nil
}

// GORMAdminRepository is a GORM implementation of AdminRepository.
type GORMAdminRepository struct {
	db *gorm.DB
}

// NewGORMAdminRepository creates a new instance of GORMAdminRepository.
func NewGORMAdminRepository(db *gorm.DB) *GORMAdminRepository {
	return &GORMAdminRepository{db: db}
}

// Create creates a new admin in the database.
func (r *GORMAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(ErrDuplicate, "admin with email %s", admin.Email)
		}
		return errors.Wrap(err, "failed to create admin")
	}
	return nil
}

// GetByEmail retrieves an admin by email.
func (r *GORMAdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "admin with email %s", email)
		}
		return nil, errors.Wrapf(err, "failed to get admin by email %s", email)
	}
	return &admin, nil
}

// GetByID retrieves an admin by ID.
func (r *GORMAdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "admin with ID %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get admin by ID %s", id)
	}
	return &admin, nil
}

// isUniqueViolation recognises duplicate-key errors from postgres and sqlite.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
