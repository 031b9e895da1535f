package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"foodorder/internal/models"
	"foodorder/internal/repositories"
	"foodorder/internal/services"
)

const testJWTSecret = "test_jwt_secret"

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *MockUserRepository) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	return m.Called(id, otpHash, expiresAt).Error(0)
}

func (m *MockUserRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(id, passwordHash).Error(0)
}

func (m *MockUserRepository) RecordOTPFailure(ctx context.Context, id string, limit int) (bool, error) {
	args := m.Called(id, limit)
	return args.Bool(0), args.Error(1)
}

// MockAdminRepository is a mock implementation of repositories.AdminRepository
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	return m.Called(admin).Error(0)
}

func (m *MockAdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func newAuthService() (*services.AuthService, *MockUserRepository, *MockAdminRepository) {
	users := new(MockUserRepository)
	admins := new(MockAdminRepository)
	return services.NewAuthService(users, admins, testJWTSecret, time.Hour), users, admins
}

func TestAuthService_RegisterUser(t *testing.T) {
	ctx := context.Background()
	authService, mockRepo, _ := newAuthService()

	user := &models.User{Name: "Test User", Email: " Test@Example.com ", Password: "password123"}
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(0).(*models.User).ID = "user-123"
	}).Once()

	token, err := authService.RegisterUser(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).
		Return(errors.Wrap(repositories.ErrDuplicate, "user with email test@example.com")).Once()
	_, err = authService.RegisterUser(ctx, &models.User{Name: "Again", Email: "test@example.com", Password: "password123"})
	assert.True(t, services.IsKind(err, services.KindValidation), "got %v", err)
	assert.Contains(t, err.Error(), "email 'test@example.com' already registered")
	mockRepo.AssertExpectations(t)

	// Test short password never reaches the repository
	_, err = authService.RegisterUser(ctx, &models.User{Name: "Short", Email: "s@example.com", Password: "12345"})
	assert.True(t, services.IsKind(err, services.KindValidation), "got %v", err)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	ctx := context.Background()
	authService, mockRepo, _ := newAuthService()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Email:    "test@example.com",
		Password: string(hashedPassword),
		IsActive: true,
	}

	// Test successful login
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	got, token, err := authService.LoginUser(ctx, "test@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, models.RoleCustomer, claims["role"])
	assert.Equal(t, user.Email, claims["email"])
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	_, _, err = authService.LoginUser(ctx, user.Email, "wrongpassword")
	assert.True(t, services.IsKind(err, services.KindUnauthenticated), "got %v", err)
	assert.Contains(t, err.Error(), "invalid credentials")

	// Test invalid credentials (user not found)
	mockRepo.On("GetByEmail", "nobody@example.com").Return(nil, errors.Wrap(repositories.ErrNotFound, "user")).Once()
	_, _, err = authService.LoginUser(ctx, "nobody@example.com", "password123")
	assert.True(t, services.IsKind(err, services.KindUnauthenticated), "got %v", err)

	// Test deactivated account
	inactive := *user
	inactive.IsActive = false
	mockRepo.On("GetByEmail", user.Email).Return(&inactive, nil).Once()
	_, _, err = authService.LoginUser(ctx, user.Email, "password123")
	assert.True(t, services.IsKind(err, services.KindAuthorization), "got %v", err)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_AdminRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	authService, _, adminRepo := newAuthService()

	admin := &models.Admin{Name: "Ops", Email: "ops@example.com", Password: "secret1"}
	adminRepo.On("Create", mock.AnythingOfType("*models.Admin")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Admin).ID = "admin-1"
	}).Once()

	token, err := authService.RegisterAdmin(ctx, admin)
	require.NoError(t, err)
	claims, err := authService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	adminRepo.On("GetByEmail", "ops@example.com").Return(admin, nil).Once()
	_, token, err = authService.LoginAdmin(ctx, "OPS@example.com", "secret1")
	require.NoError(t, err)
	id, role, err := authService.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", id)
	assert.Equal(t, models.RoleAdmin, role)

	adminRepo.On("GetByID", "missing").Return(nil, errors.Wrap(repositories.ErrNotFound, "admin")).Once()
	_, err = authService.GetAdminProfile(ctx, "missing")
	assert.True(t, services.IsKind(err, services.KindNotFound), "got %v", err)
	adminRepo.AssertExpectations(t)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	authService, mockRepo, _ := newAuthService()

	user := &models.User{ID: "user-123", Name: "Old", Phone: "1", Address: "Old St", Password: "hash"}
	mockRepo.On("GetByID", "user-123").Return(user, nil)
	mockRepo.On("UpdateProfile", mock.AnythingOfType("*models.User")).Return(nil).Once()

	updated, err := authService.UpdateProfile(ctx, "user-123", services.ProfileUpdate{Name: "New", Password: "newsecret"})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "Old St", updated.Address)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("newsecret")))

	_, err = authService.UpdateProfile(ctx, "user-123", services.ProfileUpdate{Password: "123"})
	assert.True(t, services.IsKind(err, services.KindValidation), "got %v", err)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService, _, _ := newAuthService()

	// Generate a valid token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"role":    models.RoleCustomer,
		"email":   "test@example.com",
		"exp":     jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, models.RoleCustomer, claims.Role)
	assert.Equal(t, "test@example.com", claims.Email)

	_, err = authService.ValidateToken("invalid.token.string")
	assert.True(t, services.IsKind(err, services.KindUnauthenticated), "got %v", err)

	// Test expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"role":    models.RoleCustomer,
		"exp":     jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid or expired token")

	// Test unknown role
	oddToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"role":    "courier",
		"exp":     jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	oddTokenString, _ := oddToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(oddTokenString)
	assert.True(t, services.IsKind(err, services.KindUnauthenticated), "got %v", err)

	// Test wrong secret
	other := services.NewAuthService(nil, nil, "another_secret", time.Hour)
	_, err = other.ValidateToken(validTokenString)
	assert.Error(t, err)
}
