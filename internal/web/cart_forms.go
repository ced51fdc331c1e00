package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vladislavdragonenkov/indiakart/internal/cart"
	"github.com/vladislavdragonenkov/indiakart/internal/checkout"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

// Уведомления форм корзины.
const (
	noticeRemoved = "Item removed from cart"
	noticeCleared = "Cart cleared"
)

// addedNotice: новая позиция — "X added to cart!", слияние — "X qty updated (n)".
func addedNotice(line domain.CartLine) string {
	if line.Quantity > 1 {
		return fmt.Sprintf("%s qty updated (%d)", line.ProductName, line.Quantity)
	}
	return line.ProductName + " added to cart!"
}

// addFromValues добавляет товар каталога (product_id) или произвольную
// позицию (name/price/image).
func (s *Server) addFromValues(r *http.Request, store *cart.Store, productID, name, price, image string) (domain.CartLine, error) {
	if strings.TrimSpace(productID) != "" {
		id, err := strconv.Atoi(strings.TrimSpace(productID))
		if err != nil {
			return domain.CartLine{}, fmt.Errorf("%w: product id %q is not a number", domain.ErrInvalidArgument, productID)
		}
		return store.AddProduct(r.Context(), s.catalog, id)
	}
	return store.AddItem(r.Context(), name, price, image)
}

func (s *Server) handleFormAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Bad request", "The form could not be read")
		return
	}

	var line domain.CartLine
	err := s.carts.Do(r.Context(), s.sessionID(w, r), func(store *cart.Store) error {
		var err error
		line, err = s.addFromValues(r, store,
			r.PostForm.Get("product_id"), r.PostForm.Get("name"), r.PostForm.Get("price"), r.PostForm.Get("image"))
		return err
	})
	if err != nil {
		s.formError(w, r, err)
		return
	}

	setFlash(w, addedNotice(line))
	s.redirectBack(w, r, "/cart")
}

func (s *Server) handleFormChange(delta int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := lineIDFromPath(r)
		if err != nil {
			s.formError(w, r, err)
			return
		}

		removed := false
		err = s.carts.Do(r.Context(), s.sessionID(w, r), func(store *cart.Store) error {
			line, ok := domain.NewCart(store.Snapshot()).Find(lineID)
			if !ok {
				return nil
			}
			removed = line.Quantity+delta < 1
			return store.ChangeQuantity(r.Context(), lineID, delta)
		})
		if err != nil {
			s.formError(w, r, err)
			return
		}

		if removed {
			setFlash(w, noticeRemoved)
		}
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
	}
}

func (s *Server) handleFormRemove(w http.ResponseWriter, r *http.Request) {
	lineID, err := lineIDFromPath(r)
	if err != nil {
		s.formError(w, r, err)
		return
	}

	err = s.carts.Do(r.Context(), s.sessionID(w, r), func(store *cart.Store) error {
		return store.RemoveItem(r.Context(), lineID)
	})
	if err != nil {
		s.formError(w, r, err)
		return
	}

	setFlash(w, noticeRemoved)
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) handleFormClear(w http.ResponseWriter, r *http.Request) {
	err := s.carts.Do(r.Context(), s.sessionID(w, r), func(store *cart.Store) error {
		return store.Clear(r.Context())
	})
	if err != nil {
		s.formError(w, r, err)
		return
	}

	setFlash(w, noticeCleared)
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// handleFormCheckout показывает подтверждение с номером заказа либо
// возвращает на корзину с уведомлением о пустой корзине.
func (s *Server) handleFormCheckout(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(w, r, "Order Confirmation - IndiaKart")

	var result checkout.Result
	err := s.carts.Do(r.Context(), s.sessionID(w, r), func(store *cart.Store) error {
		var err error
		result, err = s.checkout.Checkout(r.Context(), store)
		return err
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	if !result.Accepted {
		setFlash(w, result.Notice)
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	data.CartCount = 0
	data.Notice = result.Notice
	data.OrderReference = result.OrderReference
	data.Summary = result.Summary
	s.renderPage(w, r, http.StatusOK, pageConfirmation, data)
}

// formError: ошибка ввода — назад с уведомлением, неизвестный товар — 404.
func (s *Server) formError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsNotFound(err):
		s.renderError(w, r, http.StatusNotFound, "Product not found", "The product you're looking for doesn't exist")
	case domain.IsInvalidArgument(err):
		setFlash(w, "Could not update cart: "+strings.TrimPrefix(err.Error(), domain.ErrInvalidArgument.Error()+": "))
		s.redirectBack(w, r, "/cart")
	default:
		s.serverError(w, r, err)
	}
}

// redirectBack возвращает на ту же страницу сайта (Referer) или на fallback.
func (s *Server) redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	target := fallback
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" && (ref.Host == "" || ref.Host == r.Host) {
		target = ref.RequestURI()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func lineIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid line id", domain.ErrInvalidArgument)
	}
	return id, nil
}
