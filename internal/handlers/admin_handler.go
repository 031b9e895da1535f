package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"foodorder/internal/middleware"
	"foodorder/internal/models"
	"foodorder/internal/services"
)

// AdminHandler handles HTTP requests for admin accounts.
type AdminHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(authService *services.AuthService) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the admin account routes. New admins can only be
// created by an existing admin.
func (h *AdminHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	adminRoutes := router.Group("/admins")
	adminRoutes.Post("/login", h.HandleLogin)
	adminRoutes.Post("/register", authRequired, middleware.AdminOnly(), h.HandleRegister)
	adminRoutes.Get("/profile", authRequired, middleware.AdminOnly(), h.HandleGetProfile)
}

// AdminRegisterRequest represents the request body for admin registration.
type AdminRegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister creates another admin.
func (h *AdminHandler) HandleRegister(c *fiber.Ctx) error {
	var req AdminRegisterRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	admin := &models.Admin{Name: req.Name, Email: req.Email, Password: req.Password}
	token, err := h.authService.RegisterAdmin(c.UserContext(), admin)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Admin registered successfully",
		"admin":   admin,
		"token":   token,
	})
}

// HandleLogin handles admin login.
func (h *AdminHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	admin, token, err := h.authService.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"admin":   admin,
		"token":   token,
	})
}

// HandleGetProfile returns the calling admin.
func (h *AdminHandler) HandleGetProfile(c *fiber.Ctx) error {
	admin, err := h.authService.GetAdminProfile(c.UserContext(), middleware.CurrentActor(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "admin": admin})
}
