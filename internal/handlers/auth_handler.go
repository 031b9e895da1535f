package handlers

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"foodorder/internal/middleware"
	"foodorder/internal/models"
	"foodorder/internal/services"
)

// AuthHandler handles HTTP requests for customer accounts and password resets.
type AuthHandler struct {
	authService  *services.AuthService
	resetService *services.PasswordResetService
	validate     *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, resetService *services.PasswordResetService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		resetService: resetService,
		validate:     validator.New(),
	}
}

// RegisterRoutes registers the customer account routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	userRoutes := router.Group("/users")
	userRoutes.Post("/register", h.HandleRegister)
	userRoutes.Post("/login", h.HandleLogin)

	userRoutes.Post("/forgot-password", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many reset requests, try again later")
		},
	}), h.HandleForgotPassword)
	// verify-otp and reset-password share one budget per IP and email
	otpLimiter := limiter.New(limiter.Config{
		Max:          OTPGuessLimit,
		Expiration:   10 * time.Minute,
		KeyGenerator: otpLimiterKey,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many reset code attempts, try again later")
		},
	})
	userRoutes.Post("/verify-otp", otpLimiter, h.HandleVerifyOTP)
	userRoutes.Post("/reset-password", otpLimiter, h.HandleResetPassword)

	userRoutes.Get("/profile", authRequired, middleware.CustomerOnly(), h.HandleGetProfile)
	userRoutes.Put("/profile", authRequired, middleware.CustomerOnly(), h.HandleUpdateProfile)
	userRoutes.Get("/", authRequired, middleware.AdminOnly(), h.HandleListUsers)
}

// OTPGuessLimit is how many verify-otp and reset-password requests one IP may
// make for one email within the limiter window.
const OTPGuessLimit = 10

func otpLimiterKey(c *fiber.Ctx) string {
	var req struct {
		Email string `json:"email"`
	}
	_ = c.BodyParser(&req)
	return c.IP() + "|" + strings.ToLower(strings.TrimSpace(req.Email))
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Address  string `json:"address" validate:"omitempty,max=500"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest checks a reset code.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest redeems a reset code.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// HandleRegister handles new customer registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	}
	token, err := h.authService.RegisterUser(c.UserContext(), user)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// HandleLogin handles customer login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	user, token, err := h.authService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// HandleGetProfile returns the caller's profile.
func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.authService.GetProfile(c.UserContext(), middleware.CurrentActor(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// HandleUpdateProfile edits the caller's profile.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req services.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return services.ValidationError("Invalid request body")
	}

	user, err := h.authService.UpdateProfile(c.UserContext(), middleware.CurrentActor(c).ID, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// HandleListUsers lists every customer for admins.
func (h *AuthHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.authService.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "users": users})
}

// HandleForgotPassword issues a reset code by email.
func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.resetService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "A reset code has been sent to your email",
	})
}

// HandleVerifyOTP checks a reset code without consuming it.
func (h *AuthHandler) HandleVerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.resetService.VerifyOTP(c.UserContext(), req.Email, req.OTP); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Code verified"})
}

// HandleResetPassword sets a new password using a reset code.
func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.resetService.ResetPassword(c.UserContext(), req.Email, req.OTP, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password has been reset"})
}
