package models

const DefaultProductImage = "/static/default-pet.jpg"

type Product struct {
	ID          int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string  `json:"name" gorm:"not null;index"`
	Category    string  `json:"category" gorm:"not null;index"`
	Price       float64 `json:"price" gorm:"type:decimal(10,2);not null"`
	Description string  `json:"description" gorm:"type:text"`
	ImageURL    string  `json:"image_url" gorm:"default:'/static/default-pet.jpg'"`
}

func (Product) TableName() string {
	return "products"
}
