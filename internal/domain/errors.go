package domain

import "errors"

var (
	// ErrInvalidArgument — некорректный ввод (цена, имя товара, параметры политики).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProductNotFound возвращается, если товара нет в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrEmptyCart — попытка оформить пустую корзину.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSnapshotCorrupt — сохранённый снимок корзины не удалось разобрать.
	ErrSnapshotCorrupt = errors.New("cart snapshot is corrupt")
	// ErrSessionRequired — не передан идентификатор клиентской сессии.
	ErrSessionRequired = errors.New("session id is required")
	// ErrStorageUnavailable — хранилище снимков недоступно.
	ErrStorageUnavailable = errors.New("snapshot storage unavailable")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrOutboxMessageNotFound — сообщение outbox не найдено.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")
)

// IsInvalidArgument проверяет, является ли ошибка ошибкой ввода.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsNotFound проверяет, относится ли ошибка к отсутствующему товару.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}
