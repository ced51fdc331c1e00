package domain

import "github.com/shopspring/decimal"

// ProductRecord — товар каталога. Каталог только для чтения.
type ProductRecord struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Rating      float64         `json:"rating"`
	Stock       int             `json:"stock"`
}

// Ref возвращает данные товара, которые копируются в корзину.
func (p ProductRecord) Ref() ProductRef {
	return ProductRef{
		Name:      p.Name,
		UnitPrice: p.Price,
		ImageRef:  p.Image,
	}
}

// Category — категория для фильтрации витрины.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// CategoryAll — псевдокатегория «все товары».
const CategoryAll = "all"
