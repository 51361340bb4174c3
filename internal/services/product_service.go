package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=500"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Image       string          `json:"image" validate:"required"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	validate *validator.Validate
	currency currency.Unit
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, unit currency.Unit) *ProductService {
	return &ProductService{
		repo:     repo,
		validate: newValidator(),
		currency: unit,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateProductError(id, err)
	}
	return product, nil
}

// CreateProduct validates input and stores a new product.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// UpdateProduct replaces the editable fields of an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateProductError(id, err)
	}
	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.Image = in.Image

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, translateProductError(id, err)
	}
	return product, nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateProductError(id, err)
	}
	return nil
}

func (s *ProductService) check(in ProductInput) error {
	if err := validateStruct(s.validate, in); err != nil {
		return err
	}
	if !models.HasMinorUnitPrecision(in.Price, s.currency) {
		return newValidationError("price", "must be a whole number of cents")
	}
	return nil
}

func translateProductError(id string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return fmt.Errorf("product %s: %w", id, err)
}
