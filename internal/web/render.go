package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Имена страниц соответствуют файлам templates/<name>.html.
const (
	pageHome         = "home"
	pageProducts     = "products"
	pageProduct      = "product"
	pageCart         = "cart"
	pageConfirmation = "confirmation"
	pageAbout        = "about"
	pageContact      = "contact"
	pageSignup       = "signup"
	pageLogin        = "login"
	pageError        = "error"
)

var allPages = []string{
	pageHome, pageProducts, pageProduct, pageCart, pageConfirmation,
	pageAbout, pageContact, pageSignup, pageLogin, pageError,
}

type sortOption struct {
	Value string
	Label string
}

// pageData — общая модель страниц; каждая страница использует свои поля.
type pageData struct {
	Title     string
	Notice    string
	CartCount int

	FreeShippingThreshold decimal.Decimal

	Products        []domain.ProductRecord
	Categories      []domain.Category
	SortOptions     []sortOption
	CurrentCategory string
	CurrentSort     string
	SearchQuery     string

	Product *domain.ProductRecord
	Related []domain.ProductRecord

	Lines          []domain.CartLine
	Summary        domain.OrderSummary
	OrderReference string

	Error   string
	Message string
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	funcs := template.FuncMap{"rupees": formatINR}

	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout template: %w", err)
	}

	pages := make(map[string]*template.Template, len(allPages))
	for _, name := range allPages {
		base, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		page, err := base.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = page
	}
	return &renderer{pages: pages}, nil
}

// render исполняет шаблон в буфер, чтобы ошибка шаблона не оставляла
// наполовину записанный ответ.
func (r *renderer) render(w http.ResponseWriter, status int, name string, data pageData) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
