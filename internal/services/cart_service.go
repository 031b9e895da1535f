package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"foodorder/internal/models"
	"foodorder/internal/repositories"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 99

// LocalCartLine is a cart line held by the client before login.
// Any price it carries is ignored in favour of the catalog price.
type LocalCartLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CartService maintains the persisted per-user cart.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
	now         func() time.Time
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		now:         time.Now,
	}
}

// GetOrCreateCart returns the user's cart, creating an empty one on first use.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.RecalculateTotals()
	return cart, nil
}

// AddItem adds quantity of a product, merging into an existing line for the same product.
// New lines snapshot the current catalog price.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	if err := checkLineQuantity(quantity); err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fromRepo(err, "product %s not found", productID)
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if line := cart.ItemByProduct(productID); line != nil {
		if err := checkLineQuantity(line.Quantity + quantity); err != nil {
			return nil, err
		}
		line.Quantity += quantity
	} else {
		cart.Items = append(cart.Items, s.newLine(product, quantity))
	}
	return s.save(ctx, cart)
}

// UpdateItemQuantity sets the quantity of one line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, lineID string, quantity int) (*models.Cart, error) {
	if err := checkLineQuantity(quantity); err != nil {
		return nil, err
	}
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	line := cart.ItemByID(lineID)
	if line == nil {
		return nil, NotFoundError("cart item %s not found", lineID)
	}
	line.Quantity = quantity
	return s.save(ctx, cart)
}

// RemoveItem deletes one line.
func (s *CartService) RemoveItem(ctx context.Context, userID, lineID string) (*models.Cart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	kept := cart.Items[:0]
	found := false
	for _, item := range cart.Items {
		if item.ID == lineID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return nil, NotFoundError("cart item %s not found", lineID)
	}
	cart.Items = kept
	return s.save(ctx, cart)
}

// ClearCart removes every line.
func (s *CartService) ClearCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Items = nil
	return s.save(ctx, cart)
}

// SyncLocalCart merges client-held lines into the persisted cart. Lines whose
// product no longer exists, or whose quantity is below 1, are skipped. A merged
// line above MaxLineQuantity rejects the whole sync.
// Prices are always re-resolved from the catalog.
func (s *CartService) SyncLocalCart(ctx context.Context, userID string, lines []LocalCartLine) (*models.Cart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, local := range lines {
		if local.Quantity < 1 || local.ProductID == "" {
			continue
		}
		if err := checkLineQuantity(local.Quantity); err != nil {
			return nil, err
		}
		product, err := s.productRepo.GetByID(ctx, local.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return nil, errors.Wrapf(err, "failed to resolve product %s", local.ProductID)
		}
		if line := cart.ItemByProduct(product.ID); line != nil {
			if err := checkLineQuantity(line.Quantity + local.Quantity); err != nil {
				return nil, err
			}
			line.Quantity += local.Quantity
			continue
		}
		cart.Items = append(cart.Items, s.newLine(product, local.Quantity))
	}
	return s.save(ctx, cart)
}

func checkLineQuantity(quantity int) error {
	if quantity < 1 {
		return ValidationError("quantity must be at least 1")
	}
	if quantity > MaxLineQuantity {
		return ValidationError("quantity cannot exceed %d per item", MaxLineQuantity)
	}
	return nil
}

func (s *CartService) newLine(product *models.Product, quantity int) models.CartItem {
	return models.CartItem{
		ID:        uuid.New().String(),
		ProductID: product.ID,
		Quantity:  quantity,
		Price:     product.Price,
		AddedAt:   s.now(),
	}
}

func (s *CartService) load(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, errors.Wrap(err, "failed to load cart")
	}

	cart = &models.Cart{ID: uuid.New().String(), UserID: userID}
	if err := s.cartRepo.Create(ctx, cart); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// another request created it first
			return s.cartRepo.GetByUserID(ctx, userID)
		}
		return nil, errors.Wrap(err, "failed to create cart")
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, errors.Wrap(err, "failed to save cart")
	}
	cart.RecalculateTotals()
	return cart, nil
}
