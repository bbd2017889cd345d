package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gadget-grove/internal/domain"
	"gadget-grove/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidProductID = errors.New("invalid product id")
)

// NewProductParams carries already normalized creation fields.
type NewProductParams struct {
	Name       string
	Price      float64
	Category   string
	Rating     float64
	Stock      float64
	Attributes map[string]interface{}
}

// ProductService defines the interface for product operations
type ProductService interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, params NewProductParams) (*domain.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
	now         func() time.Time
}

// Option configures a ProductService
type Option func(*productService)

// WithClock overrides the clock used to stamp createdAt
func WithClock(now func() time.Time) Option {
	return func(s *productService) {
		s.now = now
	}
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, opts ...Option) ProductService {
	s := &productService{
		productRepo: productRepo,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListProducts returns every product, newest first
func (s *productService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct validates the identifier format before querying the store.
// Unknown identifiers yield repository.ErrProductNotFound.
func (s *productService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidProductID
	}

	product, err := s.productRepo.FindByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// CreateProduct stamps the creation time and persists the product
func (s *productService) CreateProduct(ctx context.Context, params NewProductParams) (*domain.Product, error) {
	product := &domain.Product{
		Name:     params.Name,
		Price:    params.Price,
		Category: params.Category,
		Rating:   params.Rating,
		Stock:    params.Stock,
		// BSON datetimes hold milliseconds
		CreatedAt:  s.now().UTC().Truncate(time.Millisecond),
		Attributes: params.Attributes,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}
