package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"petshop/internal/microservices/http-api/models"
	"petshop/internal/microservices/http-api/repository"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

const MaxProductPage = 100

type ProductService interface {
	List(ctx context.Context, category string, offset, limit int) ([]models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	SeedDefaults(ctx context.Context) (int, error)
}

type productService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

// List returns one page of the catalog, or every product of a category
func (s *productService) List(ctx context.Context, category string, offset, limit int) ([]models.Product, error) {
	if category = strings.TrimSpace(category); category != "" {
		return s.repo.ListByCategory(ctx, category)
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > MaxProductPage {
		limit = MaxProductPage
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *productService) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *productService) Create(ctx context.Context, p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	if p.Name == "" || p.Category == "" {
		return fmt.Errorf("%w: name and category are required", ErrInvalidProduct)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.ImageURL) == "" {
		p.ImageURL = models.DefaultProductImage
	}
	return s.repo.Create(ctx, p)
}

// SeedDefaults inserts the starter catalog when the table is empty and
// reports how many products it added.
func (s *productService) SeedDefaults(ctx context.Context) (int, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if total > 0 {
		return 0, nil
	}
	seed := DefaultProducts()
	if err := s.repo.CreateBatch(ctx, seed); err != nil {
		return 0, fmt.Errorf("seed products: %w", err)
	}
	return len(seed), nil
}

func DefaultProducts() []models.Product {
	return []models.Product{
		{
			Name:        "Cat food",
			Category:    "food",
			Price:       15.99,
			Description: "Nutritious food for your pet",
			ImageURL:    "/static/cat-food.jpg",
		},
		{
			Name:        "Dog toy",
			Category:    "toys",
			Price:       8.50,
			Description: "Durable toy for active dogs",
			ImageURL:    "/static/dog-toy.jpg",
		},
		{
			Name:        "Aquarium",
			Category:    "aquarium",
			Price:       45.00,
			Description: "Glass aquarium for fish",
			ImageURL:    "/static/aquarium.jpg",
		},
	}
}
