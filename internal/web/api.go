package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/indiakart/internal/cart"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

const maxBodyBytes = 64 << 10

type apiResponse map[string]any

type cartPayload struct {
	Lines   []domain.CartLine   `json:"lines"`
	Summary domain.OrderSummary `json:"summary"`
}

type addItemRequest struct {
	ProductID json.Number      `json:"productId"`
	Name      string           `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	Image     string           `json:"image"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{"success": false, "error": message})
}

// apiFailure переводит доменную ошибку в HTTP-статус.
func (s *Server) apiFailure(w http.ResponseWriter, r *http.Request, err error) {
	var formErr *domain.FormError
	switch {
	case domain.IsNotFound(err):
		writeAPIError(w, http.StatusNotFound, "Product not found")
	case errors.As(err, &formErr):
		writeAPIError(w, http.StatusBadRequest, formErr.Message)
	case domain.IsInvalidArgument(err), errors.Is(err, domain.ErrSessionRequired):
		writeAPIError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), domain.ErrInvalidArgument.Error()+": "))
	default:
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("api request failed")
		message := "Something went wrong"
		if s.development {
			message = err.Error()
		}
		writeAPIError(w, http.StatusInternalServerError, message)
	}
}

func (s *Server) apiNotFound(w http.ResponseWriter, _ *http.Request) {
	writeAPIError(w, http.StatusNotFound, "Not found")
}

func (s *Server) apiMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeAPIError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// decodeJSON читает тело запроса; пустое тело оставляет dst нулевым.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidArgument)
	}
	return nil
}

// formMediaType возвращает тип тела HTML-формы или "" для JSON.
func formMediaType(r *http.Request) string {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return mediaType
	default:
		return ""
	}
}

func (s *Server) apiListProducts(w http.ResponseWriter, _ *http.Request) {
	products := s.catalog.List()
	writeJSON(w, http.StatusOK, apiResponse{
		"success":  true,
		"count":    len(products),
		"products": products,
	})
}

func (s *Server) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.lookupProduct(mux.Vars(r)["id"])
	if err != nil {
		s.apiFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{"success": true, "product": product})
}

func (s *Server) cartPayload(store *cart.Store) cartPayload {
	lines := store.Snapshot()
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return cartPayload{Lines: lines, Summary: store.Summary(s.checkout.Pricing())}
}

// apiCart выполняет fn над корзиной сессии и отвечает её состоянием.
func (s *Server) apiCart(w http.ResponseWriter, r *http.Request, status int, message string, fn func(*cart.Store) error) {
	var payload cartPayload
	err := s.carts.Do(r.Context(), s.sessionID(w, r), func(store *cart.Store) error {
		if fn != nil {
			if err := fn(store); err != nil {
				return err
			}
		}
		payload = s.cartPayload(store)
		return nil
	})
	if err != nil {
		s.apiFailure(w, r, err)
		return
	}

	body := apiResponse{"success": true, "cart": payload}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}

func (s *Server) apiGetCart(w http.ResponseWriter, r *http.Request) {
	s.apiCart(w, r, http.StatusOK, "", nil)
}

func (s *Server) apiAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.apiFailure(w, r, err)
		return
	}
	if req.ProductID == "" && strings.TrimSpace(req.Name) == "" {
		writeAPIError(w, http.StatusBadRequest, "productId or name is required")
		return
	}

	var line domain.CartLine
	addItem := func(store *cart.Store) error {
		var err error
		if req.ProductID != "" {
			line, err = s.addFromValues(r, store, req.ProductID.String(), "", "", "")
			return err
		}
		if req.Price == nil {
			return fmt.Errorf("%w: unit price is required", domain.ErrInvalidArgument)
		}
		line, err = store.Add(r.Context(), domain.ProductRef{Name: req.Name, UnitPrice: *req.Price, ImageRef: req.Image})
		return err
	}

	var payload cartPayload
	err := s.carts.Do(r.Context(), s.sessionID(w, r), func(store *cart.Store) error {
		if err := addItem(store); err != nil {
			return err
		}
		payload = s.cartPayload(store)
		return nil
	})
	if err != nil {
		s.apiFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, apiResponse{
		"success": true,
		"message": addedNotice(line),
		"line":    line,
		"cart":    payload,
	})
}

func (s *Server) apiChangeQuantity(w http.ResponseWriter, r *http.Request) {
	lineID, err := lineIDFromPath(r)
	if err != nil {
		s.apiFailure(w, r, err)
		return
	}
	var req changeQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.apiFailure(w, r, err)
		return
	}

	s.apiCart(w, r, http.StatusOK, "", func(store *cart.Store) error {
		return store.ChangeQuantity(r.Context(), lineID, req.Delta)
	})
}

func (s *Server) apiRemoveItem(w http.ResponseWriter, r *http.Request) {
	lineID, err := lineIDFromPath(r)
	if err != nil {
		s.apiFailure(w, r, err)
		return
	}
	s.apiCart(w, r, http.StatusOK, noticeRemoved, func(store *cart.Store) error {
		return store.RemoveItem(r.Context(), lineID)
	})
}

func (s *Server) apiClearCart(w http.ResponseWriter, r *http.Request) {
	s.apiCart(w, r, http.StatusOK, noticeCleared, func(store *cart.Store) error {
		return store.Clear(r.Context())
	})
}

// apiCheckout: пустая корзина — 200 с accepted=false и уведомлением.
func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	var body apiResponse
	err := s.carts.Do(r.Context(), s.sessionID(w, r), func(store *cart.Store) error {
		result, err := s.checkout.Checkout(r.Context(), store)
		if err != nil {
			return err
		}
		body = apiResponse{
			"success":        true,
			"accepted":       result.Accepted,
			"orderReference": result.OrderReference,
			"notice":         result.Notice,
			"summary":        result.Summary,
		}
		return nil
	})
	if err != nil {
		s.apiFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
