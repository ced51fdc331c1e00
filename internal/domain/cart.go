package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CartStorageKey — хорошо известный ключ, под которым хранится снимок корзины.
const CartStorageKey = "indiakart_cart"

// CartLine — одна позиция корзины.
//
// Название, цена и картинка копируются в момент добавления и дальше не
// зависят от каталога.
type CartLine struct {
	ID          int64           `json:"id"`
	ProductName string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"price"`
	ImageRef    string          `json:"image"`
	Quantity    int             `json:"quantity"`
}

// LineTotal возвращает стоимость позиции: цена * количество.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// AddPolicy определяет поведение при повторном добавлении того же товара.
type AddPolicy string

const (
	// AddPolicyMerge увеличивает количество существующей позиции.
	AddPolicyMerge AddPolicy = "merge"
	// AddPolicyAppend всегда добавляет новую позицию с количеством 1.
	AddPolicyAppend AddPolicy = "append"
)

// Valid проверяет, что политика поддерживается.
func (p AddPolicy) Valid() bool {
	switch p {
	case AddPolicyMerge, AddPolicyAppend:
		return true
	default:
		return false
	}
}

// ParseAddPolicy разбирает строковое значение политики без учёта регистра.
func ParseAddPolicy(raw string) (AddPolicy, error) {
	policy := AddPolicy(strings.ToLower(strings.TrimSpace(raw)))
	if !policy.Valid() {
		return "", fmt.Errorf("%w: unsupported cart add policy %q", ErrInvalidArgument, raw)
	}
	return policy, nil
}

// ProductRef — то, что вызывающий код передаёт при добавлении товара.
type ProductRef struct {
	Name      string
	UnitPrice decimal.Decimal
	ImageRef  string
}

// ParseUnitPrice разбирает цену из пользовательского ввода.
// Нечисловая или отрицательная цена даёт ErrInvalidArgument.
func ParseUnitPrice(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: unit price is required", ErrInvalidArgument)
	}
	price, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: unit price %q is not a number", ErrInvalidArgument, raw)
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: unit price must be non-negative", ErrInvalidArgument)
	}
	return price, nil
}

// Validate проверяет ссылку на товар перед добавлением в корзину.
func (r ProductRef) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	}
	if r.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must be non-negative", ErrInvalidArgument)
	}
	return nil
}

// Cart — упорядоченный список позиций (порядок добавления).
//
// Методы Cart — чистые переходы состояния: они не трогают хранилище и
// возвращают новую корзину, не изменяя исходную.
type Cart struct {
	Lines []CartLine
}

// NewCart создаёт корзину из копии переданных позиций.
func NewCart(lines []CartLine) Cart {
	return Cart{Lines: cloneLines(lines)}
}

// IsEmpty сообщает, есть ли в корзине позиции.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Snapshot возвращает копию позиций.
func (c Cart) Snapshot() []CartLine {
	return cloneLines(c.Lines)
}

// MaxID возвращает наибольший идентификатор позиции (0 для пустой корзины).
func (c Cart) MaxID() int64 {
	var max int64
	for _, line := range c.Lines {
		if line.ID > max {
			max = line.ID
		}
	}
	return max
}

// Find возвращает позицию по идентификатору.
func (c Cart) Find(id int64) (CartLine, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return CartLine{}, false
	}
	return c.Lines[idx], true
}

// Add применяет добавление товара согласно политике.
// newID вызывается только когда действительно создаётся новая позиция.
func (c Cart) Add(ref ProductRef, policy AddPolicy, newID func() int64) (Cart, CartLine, error) {
	if err := ref.Validate(); err != nil {
		return c, CartLine{}, err
	}
	if policy == "" {
		policy = AddPolicyMerge
	}
	if !policy.Valid() {
		return c, CartLine{}, fmt.Errorf("%w: unsupported cart add policy %q", ErrInvalidArgument, policy)
	}

	next := c.Snapshot()
	if policy == AddPolicyMerge {
		for i := range next {
			if next[i].ProductName == ref.Name {
				next[i].Quantity = addQuantity(next[i].Quantity, 1)
				return Cart{Lines: next}, next[i], nil
			}
		}
	}

	line := CartLine{
		ID:          newID(),
		ProductName: ref.Name,
		UnitPrice:   ref.UnitPrice,
		ImageRef:    ref.ImageRef,
		Quantity:    1,
	}
	next = append(next, line)
	return Cart{Lines: next}, line, nil
}

// ChangeQuantity меняет количество на delta. Если результат меньше 1,
// позиция удаляется. Рост упирается в math.MaxInt.
// changed=false, если позиции нет или delta == 0.
func (c Cart) ChangeQuantity(id int64, delta int) (next Cart, changed bool) {
	idx := c.indexOf(id)
	if idx < 0 || delta == 0 {
		return c, false
	}

	lines := c.Snapshot()
	qty := addQuantity(lines[idx].Quantity, delta)
	if qty < 1 {
		lines = append(lines[:idx], lines[idx+1:]...)
		return Cart{Lines: lines}, true
	}
	lines[idx].Quantity = qty
	return Cart{Lines: lines}, true
}

// addQuantity складывает без переполнения int.
func addQuantity(qty, delta int) int {
	if delta > 0 && qty > math.MaxInt-delta {
		return math.MaxInt
	}
	if delta < 0 && qty < math.MinInt-delta {
		return math.MinInt
	}
	return qty + delta
}

// Remove удаляет позицию. changed=false, если позиции не было.
func (c Cart) Remove(id int64) (next Cart, changed bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return c, false
	}
	lines := c.Snapshot()
	lines = append(lines[:idx], lines[idx+1:]...)
	return Cart{Lines: lines}, true
}

// Clear возвращает пустую корзину.
func (c Cart) Clear() Cart {
	return Cart{}
}

func (c Cart) indexOf(id int64) int {
	for i, line := range c.Lines {
		if line.ID == id {
			return i
		}
	}
	return -1
}

func cloneLines(lines []CartLine) []CartLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
