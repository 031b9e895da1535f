package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"foodorder/internal/middleware"
	"foodorder/internal/services"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes. Every route needs a customer token.
func (h *CartHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	cartRoutes := router.Group("/cart", authRequired, middleware.CustomerOnly())
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:itemId", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:itemId", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/sync", h.HandleSync)
}

// AddCartItemRequest adds a product. A missing quantity means 1.
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1,max=99"`
}

// UpdateCartItemRequest sets the quantity of a line.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"min=1,max=99"`
}

// SyncCartRequest carries the lines a client kept before login.
type SyncCartRequest struct {
	Items []services.LocalCartLine `json:"items"`
}

// HandleGetCart returns the caller's cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetOrCreateCart(c.UserContext(), middleware.CurrentActor(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "cart": cart})
}

// HandleAddItem adds a product to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddCartItemRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.service.AddItem(c.UserContext(), middleware.CurrentActor(c).ID, req.ProductID, quantity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "cart": cart})
}

// HandleUpdateItem changes the quantity of one line.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req UpdateCartItemRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	cart, err := h.service.UpdateItemQuantity(c.UserContext(), middleware.CurrentActor(c).ID, c.Params("itemId"), req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "cart": cart})
}

// HandleRemoveItem removes one line.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	cart, err := h.service.RemoveItem(c.UserContext(), middleware.CurrentActor(c).ID, c.Params("itemId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "cart": cart})
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	cart, err := h.service.ClearCart(c.UserContext(), middleware.CurrentActor(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "cart": cart})
}

// HandleSync merges the client's local cart into the stored one.
func (h *CartHandler) HandleSync(c *fiber.Ctx) error {
	var req SyncCartRequest
	if err := c.BodyParser(&req); err != nil {
		return services.ValidationError("Invalid request body")
	}

	cart, err := h.service.SyncLocalCart(c.UserContext(), middleware.CurrentActor(c).ID, req.Items)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "cart": cart})
}
