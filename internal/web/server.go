// Package web — HTTP-витрина IndiaKart: серверные страницы, формы корзины
// (post/redirect/get) и JSON API поверх одной cookie-сессии.
package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/vladislavdragonenkov/indiakart/internal/cart"
	"github.com/vladislavdragonenkov/indiakart/internal/catalog"
	"github.com/vladislavdragonenkov/indiakart/internal/checkout"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	featuredLimit     = 4
	relatedLimit      = 4
)

var tracer = otel.Tracer("github.com/vladislavdragonenkov/indiakart/internal/web")

// Observer получает метрики запросов и форм.
type Observer interface {
	ObserveHTTPRequest(route, method string, status int, duration time.Duration)
	ObserveForm(form string, accepted bool)
}

// Options задаёт параметры Server.
type Options struct {
	Logger      *log.Entry
	Observer    Observer
	Outbox      domain.OutboxRepository
	Development bool
	SessionTTL  time.Duration
	Clock       func() time.Time
}

// Option настраивает Server.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithObserver подключает метрики.
func WithObserver(observer Observer) Option {
	return func(opts *Options) {
		opts.Observer = observer
	}
}

// WithOutbox включает события contact.received и newsletter.subscribed.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = repo
	}
}

// WithDevelopment включает подробные ошибки и info-лог запросов.
func WithDevelopment(enabled bool) Option {
	return func(opts *Options) {
		opts.Development = enabled
	}
}

// WithSessionTTL задаёт Max-Age cookie сессии.
func WithSessionTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.SessionTTL = ttl
	}
}

// WithClock подменяет часы для меток времени событий.
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// Server — http.Handler витрины.
type Server struct {
	carts       *cart.Manager
	checkout    *checkout.Service
	catalog     *catalog.Catalog
	outbox      domain.OutboxRepository
	observer    Observer
	logger      *log.Entry
	pages       *renderer
	development bool
	sessionTTL  time.Duration
	clock       func() time.Time
	handler     http.Handler
}

// NewServer собирает маршруты витрины.
func NewServer(carts *cart.Manager, checkoutSvc *checkout.Service, products *catalog.Catalog, options ...Option) (*Server, error) {
	opts := Options{SessionTTL: defaultSessionTTL}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "web")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}

	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		carts:       carts,
		checkout:    checkoutSvc,
		catalog:     products,
		outbox:      opts.Outbox,
		observer:    opts.Observer,
		logger:      logger,
		pages:       pages,
		development: opts.Development,
		sessionTTL:  opts.SessionTTL,
		clock:       opts.Clock,
	}
	s.handler = s.recoverPanics(securityHeaders(s.accessLog(s.routes())))
	return s, nil
}

// ServeHTTP реализует http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.PathPrefix("/static/").Handler(staticHandler()).Methods(http.MethodGet)

	// Страницы
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/products", s.handleProducts).Methods(http.MethodGet)
	r.HandleFunc("/product/{id}", s.handleProduct).Methods(http.MethodGet)
	r.HandleFunc("/cart", s.handleCart).Methods(http.MethodGet)
	r.HandleFunc("/about", s.staticPage(pageAbout, "About Us - IndiaKart")).Methods(http.MethodGet)
	r.HandleFunc("/contact", s.staticPage(pageContact, "Contact Us - IndiaKart")).Methods(http.MethodGet)
	r.HandleFunc("/signup", s.staticPage(pageSignup, "Sign Up - IndiaKart")).Methods(http.MethodGet)
	r.HandleFunc("/login", s.staticPage(pageLogin, "Login - IndiaKart")).Methods(http.MethodGet)

	// Формы корзины
	forms := r.PathPrefix("/cart").Subrouter()
	forms.HandleFunc("/items", s.handleFormAdd).Methods(http.MethodPost)
	forms.HandleFunc("/items/{id:[0-9]+}/increment", s.handleFormChange(1)).Methods(http.MethodPost)
	forms.HandleFunc("/items/{id:[0-9]+}/decrement", s.handleFormChange(-1)).Methods(http.MethodPost)
	forms.HandleFunc("/items/{id:[0-9]+}/remove", s.handleFormRemove).Methods(http.MethodPost)
	forms.HandleFunc("/clear", s.handleFormClear).Methods(http.MethodPost)
	forms.HandleFunc("/checkout", s.handleFormCheckout).Methods(http.MethodPost)

	// JSON API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", s.apiListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.apiGetProduct).Methods(http.MethodGet)
	api.HandleFunc("/cart", s.apiGetCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", s.apiClearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", s.apiAddItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id:[0-9]+}", s.apiChangeQuantity).Methods(http.MethodPatch)
	api.HandleFunc("/cart/items/{id:[0-9]+}", s.apiRemoveItem).Methods(http.MethodDelete)
	api.HandleFunc("/cart/checkout", s.apiCheckout).Methods(http.MethodPost)
	api.HandleFunc("/contact", s.apiContact).Methods(http.MethodPost)
	api.HandleFunc("/newsletter", s.apiNewsletter).Methods(http.MethodPost)
	api.HandleFunc("/signup/validate", s.apiSignupValidate).Methods(http.MethodPost)
	api.HandleFunc("/promo", s.apiPromo).Methods(http.MethodPost)
	api.NotFoundHandler = http.HandlerFunc(s.apiNotFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(s.apiMethodNotAllowed)

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)
	return r
}
