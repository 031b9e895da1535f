package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"foodorder/internal/mailer"
	"foodorder/internal/models"
	"foodorder/internal/repositories"
)

// DefaultOTPTTL is how long a reset code stays valid.
const DefaultOTPTTL = 10 * time.Minute

// MaxOTPAttempts is the number of wrong guesses after which a code is burned.
const MaxOTPAttempts = 5

// PasswordResetService issues and redeems one-time password reset codes.
type PasswordResetService struct {
	userRepo   repositories.UserRepository
	mail       mailer.Mailer
	ttl        time.Duration
	production bool
	now        func() time.Time
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(userRepo repositories.UserRepository, mail mailer.Mailer, ttl time.Duration, production bool) *PasswordResetService {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &PasswordResetService{
		userRepo:   userRepo,
		mail:       mail,
		ttl:        ttl,
		production: production,
		now:        time.Now,
	}
}

// SetClock replaces the clock used for code expiry.
func (s *PasswordResetService) SetClock(now func() time.Time) {
	s.now = now
}

// ForgotPassword stores a fresh hashed code for email and mails the code.
// Mail failure is logged only.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fromRepo(err, "no account with email %s", email)
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "failed to hash otp")
	}
	if err := s.userRepo.SetOTP(ctx, user.ID, string(hashed), s.now().Add(s.ttl)); err != nil {
		return fromRepo(err, "user %s not found", user.ID)
	}

	if !s.production {
		logrus.WithFields(logrus.Fields{"email": user.Email, "otp": code}).Debug("password reset code issued")
	}
	if err := s.mail.Send(ctx, mailer.PasswordReset(user.Email, code, s.ttl)); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"hook":    "otp_email",
			"error":   TransportError(err, "otp email failed").Error(),
		}).Warn("failed to send password reset code")
	}
	return nil
}

// VerifyOTP checks code against the stored hash and expiry.
func (s *PasswordResetService) VerifyOTP(ctx context.Context, email, code string) error {
	_, err := s.verified(ctx, email, code)
	return err
}

// ResetPassword replaces the password of email if code is valid, and burns the code.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ValidationError("password must be at least %d characters", MinPasswordLength)
	}
	user, err := s.verified(ctx, email, code)
	if err != nil {
		return err
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.ResetPassword(ctx, user.ID, hashed); err != nil {
		return fromRepo(err, "user %s not found", user.ID)
	}
	logrus.WithField("user_id", user.ID).Info("password reset")
	return nil
}

func (s *PasswordResetService) verified(ctx context.Context, email, code string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fromRepo(err, "no account with email %s", email)
	}
	if user.OTPHash == "" || user.OTPExpiresAt == nil {
		return nil, ValidationError("no reset code was requested")
	}
	if s.now().After(*user.OTPExpiresAt) {
		return nil, ValidationError("reset code has expired")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.OTPHash), []byte(code)); err != nil {
		burned, recErr := s.userRepo.RecordOTPFailure(ctx, user.ID, MaxOTPAttempts)
		if recErr != nil {
			return nil, fromRepo(recErr, "user %s not found", user.ID)
		}
		if burned {
			logrus.WithField("user_id", user.ID).Warn("reset code burned after too many wrong guesses")
			return nil, ValidationError("too many invalid attempts, request a new reset code")
		}
		return nil, ValidationError("reset code is invalid")
	}
	return user, nil
}

// generateOTP returns a uniformly random 6-digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", errors.Wrap(err, "failed to generate otp")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
