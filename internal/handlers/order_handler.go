package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"foodorder/internal/middleware"
	"foodorder/internal/models"
	"foodorder/internal/repositories"
	"foodorder/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	orderRoutes := router.Group("/orders", authRequired)
	orderRoutes.Post("/", middleware.CustomerOnly(), h.HandleCreateOrder)
	orderRoutes.Get("/", middleware.AdminOnly(), h.HandleGetOrders)
	orderRoutes.Get("/myorders", middleware.CustomerOnly(), h.HandleGetMyOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Put("/:id/status", middleware.AdminOnly(), h.HandleUpdateOrderStatus)
	orderRoutes.Put("/:id/cancel", middleware.CustomerOnly(), h.HandleCancelOrder)
	orderRoutes.Put("/:id/admin-cancel", middleware.AdminOnly(), h.HandleAdminCancelOrder)
}

// UpdateStatusRequest is the body of a status update.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminCancelRequest is the body of an admin cancellation. Reason is optional.
type AdminCancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// HandleCreateOrder places an order for the caller.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderInput
	if err := c.BodyParser(&req); err != nil {
		return services.ValidationError("Invalid request body")
	}

	order, err := h.service.CreateOrder(c.UserContext(), middleware.CurrentActor(c).ID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Order placed successfully",
		"order":   order,
	})
}

// HandleGetOrders lists every order for admins.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), repositories.OrderFilter{})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders})
}

// HandleGetMyOrders lists the caller's orders, newest first.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), repositories.OrderFilter{UserID: middleware.CurrentActor(c).ID})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders})
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), c.Params("id"), middleware.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "order": order})
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	order, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), models.OrderStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order status updated to " + string(order.Status),
		"order":   order,
	})
}

// HandleCancelOrder lets the owner cancel shortly after checkout.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.CancelByCustomer(c.UserContext(), c.Params("id"), middleware.CurrentActor(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order cancelled successfully",
		"order":   order,
	})
}

// HandleAdminCancelOrder cancels any non-terminal order.
func (h *OrderHandler) HandleAdminCancelOrder(c *fiber.Ctx) error {
	var req AdminCancelRequest
	if len(c.Body()) > 0 {
		if err := bindAndValidate(c, h.validate, &req); err != nil {
			return err
		}
	}

	order, err := h.service.CancelByAdmin(c.UserContext(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order cancelled successfully",
		"order":   order,
	})
}
