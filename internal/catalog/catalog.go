// Package catalog хранит витринный каталог товаров. Каталог неизменяем
// после создания и безопасен для конкурентного чтения.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

// Порядок сортировки списка товаров.
const (
	SortDefault   = "default"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortName      = "name"
	SortRating    = "rating"
)

// Filter — параметры выборки страницы товаров.
type Filter struct {
	Category string
	Search   string
	Sort     string
}

// Catalog — read-only каталог в памяти.
type Catalog struct {
	products   []domain.ProductRecord
	byID       map[int]int
	categories []domain.Category
}

var _ domain.Catalog = (*Catalog)(nil)

// New создаёт каталог из переданных товаров и категорий.
func New(products []domain.ProductRecord, categories []domain.Category) (*Catalog, error) {
	c := &Catalog{
		products:   make([]domain.ProductRecord, len(products)),
		byID:       make(map[int]int, len(products)),
		categories: append([]domain.Category(nil), categories...),
	}
	copy(c.products, products)

	for i, p := range c.products {
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate product id %d", domain.ErrInvalidArgument, p.ID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("%w: product %d has negative price", domain.ErrInvalidArgument, p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// NewDefault возвращает стандартный каталог IndiaKart.
func NewDefault() *Catalog {
	c, err := New(seedProducts(), seedCategories())
	if err != nil {
		panic(err)
	}
	return c
}

// List возвращает все товары в исходном порядке.
func (c *Catalog) List() []domain.ProductRecord {
	return c.clone(c.products)
}

// Get возвращает товар по идентификатору.
func (c *Catalog) Get(id int) (domain.ProductRecord, error) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.ProductRecord{}, fmt.Errorf("%w: id %d", domain.ErrProductNotFound, id)
	}
	return c.products[idx], nil
}

// Categories возвращает категории, включая псевдокатегорию "all".
func (c *Catalog) Categories() []domain.Category {
	return append([]domain.Category(nil), c.categories...)
}

// Query фильтрует и сортирует товары. Пустая категория или "all" — без
// фильтра; поиск — подстрока без учёта регистра в имени или описании.
func (c *Catalog) Query(f Filter) []domain.ProductRecord {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.ProductRecord, 0, len(c.products))
	for _, p := range c.products {
		if f.Category != "" && f.Category != domain.CategoryAll && p.Category != f.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}

	switch f.Sort {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	case SortRating:
		sort.SliceStable(out, byRatingDesc(out))
	}
	return out
}

// Featured возвращает limit товаров с наивысшим рейтингом.
// Исходный порядок каталога не меняется.
func (c *Catalog) Featured(limit int) []domain.ProductRecord {
	out := c.clone(c.products)
	sort.SliceStable(out, byRatingDesc(out))
	return truncate(out, limit)
}

// Related возвращает до limit товаров той же категории, кроме самого товара.
func (c *Catalog) Related(product domain.ProductRecord, limit int) []domain.ProductRecord {
	out := make([]domain.ProductRecord, 0, limit)
	for _, p := range c.products {
		if p.Category == product.Category && p.ID != product.ID {
			out = append(out, p)
		}
	}
	return truncate(out, limit)
}

// HasCategory сообщает, известна ли категория каталогу.
func (c *Catalog) HasCategory(id string) bool {
	for _, cat := range c.categories {
		if cat.ID == id {
			return true
		}
	}
	return false
}

func (c *Catalog) clone(in []domain.ProductRecord) []domain.ProductRecord {
	out := make([]domain.ProductRecord, len(in))
	copy(out, in)
	return out
}

func byRatingDesc(items []domain.ProductRecord) func(i, j int) bool {
	return func(i, j int) bool { return items[i].Rating > items[j].Rating }
}

func truncate(items []domain.ProductRecord, limit int) []domain.ProductRecord {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
