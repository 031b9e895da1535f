package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"foodorder/internal/models"
	"foodorder/internal/repositories"
)

// MinPasswordLength applies to registration, profile updates and resets.
const MinPasswordLength = 6

// Claims is the identity carried by a token.
type Claims struct {
	UserID string
	Role   string
	Email  string
}

// ProfileUpdate holds the editable profile fields. Empty fields are left unchanged.
type ProfileUpdate struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Password string `json:"password"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	adminRepo repositories.AdminRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, adminRepo repositories.AdminRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	return &AuthService{
		userRepo:  userRepo,
		adminRepo: adminRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// RegisterUser hashes the password, stores the customer and returns a token.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) (string, error) {
	user.Email = normalizeEmail(user.Email)
	if strings.TrimSpace(user.Name) == "" || user.Email == "" {
		return "", ValidationError("name and email are required")
	}
	if len(user.Password) < MinPasswordLength {
		return "", ValidationError("password must be at least %d characters", MinPasswordLength)
	}

	hashedPassword, err := hashPassword(user.Password)
	if err != nil {
		return "", err
	}
	user.Password = hashedPassword
	user.Role = models.RoleCustomer
	user.IsActive = true

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return "", newError(KindValidation, err, "email '%s' already registered", user.Email)
		}
		return "", errors.Wrap(err, "failed to register user")
	}
	logrus.WithField("user_id", user.ID).Info("user registered")

	return s.GenerateToken(user.ID, models.RoleCustomer, user.Email)
}

// LoginUser authenticates a customer and returns a token if successful.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", UnauthenticatedError("invalid credentials")
		}
		return nil, "", errors.Wrap(err, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", UnauthenticatedError("invalid credentials")
	}
	if !user.IsActive {
		return nil, "", AuthorizationError("account is deactivated")
	}

	token, err := s.GenerateToken(user.ID, models.RoleCustomer, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetProfile returns the customer with id.
func (s *AuthService) GetProfile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "user %s not found", id)
	}
	return user, nil
}

// UpdateProfile applies the non-empty fields of in to the customer.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "user %s not found", id)
	}

	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Phone != "" {
		user.Phone = in.Phone
	}
	if in.Address != "" {
		user.Address = in.Address
	}
	if in.Password != "" {
		if len(in.Password) < MinPasswordLength {
			return nil, ValidationError("password must be at least %d characters", MinPasswordLength)
		}
		hashed, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fromRepo(err, "user %s not found", id)
	}
	return user, nil
}

// ListUsers returns every customer.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	return users, nil
}

// RegisterAdmin stores a new admin and returns a token for it.
func (s *AuthService) RegisterAdmin(ctx context.Context, admin *models.Admin) (string, error) {
	admin.Email = normalizeEmail(admin.Email)
	if strings.TrimSpace(admin.Name) == "" || admin.Email == "" {
		return "", ValidationError("name and email are required")
	}
	if len(admin.Password) < MinPasswordLength {
		return "", ValidationError("password must be at least %d characters", MinPasswordLength)
	}

	hashedPassword, err := hashPassword(admin.Password)
	if err != nil {
		return "", err
	}
	admin.Password = hashedPassword
	admin.Role = models.RoleAdmin

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return "", newError(KindValidation, err, "email '%s' already registered", admin.Email)
		}
		return "", errors.Wrap(err, "failed to register admin")
	}
	logrus.WithField("admin_id", admin.ID).Info("admin registered")

	return s.GenerateToken(admin.ID, models.RoleAdmin, admin.Email)
}

// LoginAdmin authenticates an admin and returns a token if successful.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*models.Admin, string, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", UnauthenticatedError("invalid credentials")
		}
		return nil, "", errors.Wrap(err, "failed to load admin")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, "", UnauthenticatedError("invalid credentials")
	}

	token, err := s.GenerateToken(admin.ID, models.RoleAdmin, admin.Email)
	if err != nil {
		return nil, "", err
	}
	return admin, token, nil
}

// GetAdminProfile returns the admin with id.
func (s *AuthService) GetAdminProfile(ctx context.Context, id string) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "admin %s not found", id)
	}
	return admin, nil
}

// GenerateToken signs an HS256 token for the given identity.
func (s *AuthService) GenerateToken(id, role, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": id,
		"role":    role,
		"email":   email,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate token")
	}
	return tokenString, nil
}

// ValidateToken parses and validates a token, returning its claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		logrus.WithError(err).Debug("token validation failed")
		return nil, UnauthenticatedError("invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, UnauthenticatedError("invalid token")
	}

	claims := &Claims{}
	claims.UserID, _ = mapClaims["user_id"].(string)
	claims.Role, _ = mapClaims["role"].(string)
	claims.Email, _ = mapClaims["email"].(string)
	if claims.UserID == "" || (claims.Role != models.RoleCustomer && claims.Role != models.RoleAdmin) {
		return nil, UnauthenticatedError("invalid token claims")
	}
	return claims, nil
}

// Authenticate resolves a token to an id and role for the realtime hub.
func (s *AuthService) Authenticate(tokenString string) (string, string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", "", err
	}
	return claims.UserID, claims.Role, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
