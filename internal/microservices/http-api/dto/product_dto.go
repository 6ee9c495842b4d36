package dto

import (
	"petshop/internal/microservices/http-api/models"

	"github.com/samber/lo"
)

// CreateProductDTO used for POST /products
type CreateProductDTO struct {
	Name        string  `json:"name" binding:"required,notblank,max=200"`
	Category    string  `json:"category" binding:"required,notblank,max=50"`
	Price       float64 `json:"price" binding:"gte=0"`
	Description string  `json:"description" binding:"max=2000"`
	ImageURL    string  `json:"image_url,omitempty" binding:"omitempty,max=500"`
}

type ProductResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
}

func (d CreateProductDTO) ToModel() models.Product {
	return models.Product{
		Name:        d.Name,
		Category:    d.Category,
		Price:       d.Price,
		Description: d.Description,
		ImageURL:    d.ImageURL,
	}
}

func FromProductModel(p models.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
	}
}

func FromProductModels(list []models.Product) []ProductResponse {
	return lo.Map(list, func(p models.Product, _ int) ProductResponse {
		return FromProductModel(p)
	})
}
