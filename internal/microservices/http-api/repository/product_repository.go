package repository

import (
	"context"
	"fmt"

	"petshop/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type ProductRepository interface {
	List(ctx context.Context, offset, limit int) ([]models.Product, error)
	ListByCategory(ctx context.Context, category string) ([]models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	CreateBatch(ctx context.Context, products []models.Product) error
	Count(ctx context.Context) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) List(ctx context.Context, offset, limit int) ([]models.Product, error) {
	var list []models.Product
	if err := r.db.WithContext(ctx).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return list, nil
}

func (r *productRepository) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	var list []models.Product
	if err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("id asc").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list products by category: %w", err)
	}
	return list, nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	// GORM populates product.ID
	return nil
}

func (r *productRepository) CreateBatch(ctx context.Context, products []models.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&products).Error
	})
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
