package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vladislavdragonenkov/indiakart/internal/catalog"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

var sortOptions = []sortOption{
	{Value: catalog.SortDefault, Label: "Featured"},
	{Value: catalog.SortPriceLow, Label: "Price: Low to High"},
	{Value: catalog.SortPriceHigh, Label: "Price: High to Low"},
	{Value: catalog.SortName, Label: "Name"},
	{Value: catalog.SortRating, Label: "Rating"},
}

// basePage заполняет общие поля: счётчик корзины и flash-уведомление.
func (s *Server) basePage(w http.ResponseWriter, r *http.Request, title string) pageData {
	data := pageData{
		Title:                 title,
		Notice:                popFlash(w, r),
		FreeShippingThreshold: s.checkout.Pricing().FreeShippingThreshold,
	}

	lines, err := s.carts.View(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.logger.WithError(err).Warn("failed to load cart for page header")
		return data
	}
	data.CartCount = domain.ComputeSummary(lines, s.checkout.Pricing()).ItemCount
	return data
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	if err := s.pages.render(w, status, name, data); err != nil {
		s.serverError(w, r, err)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(w, r, "IndiaKart - Premium E-Commerce")
	data.Products = s.catalog.Featured(featuredLimit)
	s.renderPage(w, r, http.StatusOK, pageHome, data)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := catalog.Filter{
		Category: query.Get("category"),
		Search:   query.Get("search"),
		Sort:     query.Get("sort"),
	}

	data := s.basePage(w, r, "Products - IndiaKart")
	data.Products = s.catalog.Query(filter)
	data.Categories = s.catalog.Categories()
	data.SortOptions = sortOptions
	data.CurrentCategory = orDefault(filter.Category, domain.CategoryAll)
	data.CurrentSort = orDefault(filter.Sort, catalog.SortDefault)
	data.SearchQuery = filter.Search
	s.renderPage(w, r, http.StatusOK, pageProducts, data)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.lookupProduct(mux.Vars(r)["id"])
	if err != nil {
		if domain.IsNotFound(err) {
			s.renderError(w, r, http.StatusNotFound, "Product not found", "The product you're looking for doesn't exist")
			return
		}
		s.serverError(w, r, err)
		return
	}

	data := s.basePage(w, r, product.Name+" - IndiaKart")
	data.Product = &product
	data.Related = s.catalog.Related(product, relatedLimit)
	s.renderPage(w, r, http.StatusOK, pageProduct, data)
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(w, r, "Shopping Cart - IndiaKart")

	lines, err := s.carts.View(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data.Lines = lines
	data.Summary = domain.ComputeSummary(lines, s.checkout.Pricing())
	s.renderPage(w, r, http.StatusOK, pageCart, data)
}

func (s *Server) staticPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, http.StatusOK, name, s.basePage(w, r, title))
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "Page Not Found",
		"The page \""+r.URL.RequestURI()+"\" you're looking for doesn't exist.")
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	data := pageData{Error: title, Message: message}
	data.Title = "Error - IndiaKart"
	if status == http.StatusNotFound {
		data.Title = "404 - Page Not Found"
	}
	if err := s.pages.render(w, status, pageError, data); err != nil {
		s.logger.WithError(err).Error("failed to render error page")
		http.Error(w, title, status)
	}
}

// serverError — 500. Подробности ошибки только в режиме разработки.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	if s.development {
		s.renderError(w, r, http.StatusInternalServerError, err.Error(), "See server logs for details")
		return
	}
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong", "Please try again later")
}

// lookupProduct разбирает id из пути. Нечисловой id — как отсутствующий товар.
func (s *Server) lookupProduct(raw string) (domain.ProductRecord, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return domain.ProductRecord{}, errors.Join(domain.ErrProductNotFound, err)
	}
	return s.catalog.Get(id)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
