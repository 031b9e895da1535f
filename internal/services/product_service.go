package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"foodorder/internal/models"
	"foodorder/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "product %s not found", id)
	}
	return product, nil
}

// CreateProduct validates and stores a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	return errors.Wrap(s.repo.Create(ctx, product), "failed to create product")
}

// UpdateProduct validates and updates an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return fromRepo(err, "product %s not found", product.ID)
	}
	return nil
}

// DeleteProduct deletes a product by its ID. Existing orders keep their snapshots.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fromRepo(err, "product %s not found", id)
	}
	return nil
}

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ValidationError("product name is required")
	}
	if !p.Price.IsPositive() {
		return ValidationError("price must be greater than 0")
	}
	if p.Stock < 0 {
		return ValidationError("stock cannot be negative")
	}
	return nil
}
