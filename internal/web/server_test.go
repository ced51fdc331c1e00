package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/indiakart/internal/cart"
	"github.com/vladislavdragonenkov/indiakart/internal/catalog"
	"github.com/vladislavdragonenkov/indiakart/internal/checkout"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
	"github.com/vladislavdragonenkov/indiakart/internal/storage/memory"
)

type stubObserver struct {
	mu       sync.Mutex
	routes   []string
	accepted map[string]int
	rejected map[string]int
}

func newStubObserver() *stubObserver {
	return &stubObserver{accepted: map[string]int{}, rejected: map[string]int{}}
}

func (o *stubObserver) ObserveHTTPRequest(route, method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, method+" "+route)
}

func (o *stubObserver) ObserveForm(form string, accepted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if accepted {
		o.accepted[form]++
		return
	}
	o.rejected[form]++
}

type testEnv struct {
	server   *Server
	http     *httptest.Server
	client   *http.Client
	outbox   *memory.OutboxRepository
	observer *stubObserver
}

func newTestEnv(t *testing.T, options ...Option) *testEnv {
	t.Helper()

	outbox := memory.NewOutboxRepository()
	observer := newStubObserver()
	// Нулевые часы: идентификаторы позиций идут подряд с 1.
	carts := cart.NewManager(memory.NewSnapshotStorage(time.Hour),
		cart.WithClock(func() time.Time { return time.Unix(0, 0) }),
	)
	checkoutSvc := checkout.NewService(domain.DefaultPricingPolicy(),
		checkout.WithOutbox(outbox),
		checkout.WithReferenceGenerator(func() string { return "AB12CD34" }),
	)

	options = append([]Option{WithOutbox(outbox), WithObserver(observer)}, options...)
	srv, err := NewServer(carts, checkoutSvc, catalog.NewDefault(), options...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{server: srv, http: ts, client: client, outbox: outbox, observer: observer}
}

func (e *testEnv) do(t *testing.T, method, path, contentType, body string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, e.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	return e.do(t, http.MethodGet, path, "", "")
}

func (e *testEnv) postForm(t *testing.T, path string, values url.Values) (*http.Response, string) {
	return e.do(t, http.MethodPost, path, "application/x-www-form-urlencoded", values.Encode())
}

func (e *testEnv) sendJSON(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, raw := e.do(t, method, path, "application/json", body)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded), raw)
	return resp, decoded
}

func TestPages_Render(t *testing.T) {
	env := newTestEnv(t)

	pages := []struct {
		path string
		want string
	}{
		{path: "/", want: "IndiaKart"},
		{path: "/products", want: "Products - IndiaKart"},
		{path: "/products?category=fashion&sort=price-low", want: "Levi"},
		{path: "/products?search=watch", want: "Apple Watch Series 9"},
		{path: "/product/5", want: "Sony WH-1000XM5"},
		{path: "/cart", want: "Your cart is empty"},
		{path: "/about", want: "About Us - IndiaKart"},
		{path: "/contact", want: "Contact Us - IndiaKart"},
		{path: "/signup", want: "Sign Up - IndiaKart"},
		{path: "/login", want: "Login - IndiaKart"},
	}

	for _, tt := range pages {
		path, want := tt.path, tt.want
		t.Run(path, func(t *testing.T) {
			resp, body := env.get(t, path)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
			assert.Equal(t, "1; mode=block", resp.Header.Get("X-XSS-Protection"))
			assert.Contains(t, body, want)
		})
	}
}

func TestPages_ProductPriceUsesIndianGrouping(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/product/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "₹1,59,900")
}

func TestPages_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/product/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Product not found")

	resp, _ = env.get(t, "/product/abc")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.get(t, "/no-such-page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Page Not Found")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/static/styles.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}

func TestSessionCookie_IssuedOnce(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/")
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, int(defaultSessionTTL/time.Second), session.MaxAge)

	resp, _ = env.get(t, "/cart")
	for _, c := range resp.Cookies() {
		assert.NotEqual(t, SessionCookieName, c.Name, "existing session must be reused")
	}
}

func TestFormCart_AddMergeAndCheckout(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.postForm(t, "/cart/items", url.Values{"product_id": {"5"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))

	resp, body := env.get(t, "/cart")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Sony WH-1000XM5 added to cart!")
	assert.Contains(t, body, "₹29,990")

	// Уведомление показывается один раз.
	_, body = env.get(t, "/cart")
	assert.NotContains(t, body, "added to cart!")

	resp, _ = env.postForm(t, "/cart/items", url.Values{"product_id": {"5"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = env.get(t, "/cart")
	assert.Contains(t, body, "Sony WH-1000XM5 qty updated (2)")
	assert.Contains(t, body, `<span class="cart-count">2</span>`)

	resp, body = env.postForm(t, "/cart/checkout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Order placed successfully!")
	assert.Contains(t, body, "AB12CD34")

	_, body = env.get(t, "/cart")
	assert.Contains(t, body, "Your cart is empty")

	pending := env.outbox.AllPending()
	require.Len(t, pending, 1)
	assert.Equal(t, domain.EventCheckoutCompleted, pending[0].EventType)
	assert.Equal(t, "AB12CD34", pending[0].AggregateID)
}

func TestFormCart_CustomLineChangeAndRemove(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.postForm(t, "/cart/items", url.Values{"name": {"Masala Chai"}, "price": {"250"}, "image": {"chai.png"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = env.postForm(t, "/cart/items/1/increment", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body := env.get(t, "/cart")
	assert.Contains(t, body, "₹500")

	resp, _ = env.postForm(t, "/cart/items/1/decrement", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = env.postForm(t, "/cart/items/1/decrement", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = env.get(t, "/cart")
	assert.Contains(t, body, noticeRemoved)
	assert.Contains(t, body, "Your cart is empty")

	// Неизвестная позиция: no-op.
	resp, _ = env.postForm(t, "/cart/items/42/remove", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestFormCart_InvalidPriceRedirectsWithNotice(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.postForm(t, "/cart/items", url.Values{"name": {"Broken"}, "price": {"abc"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := env.get(t, "/cart")
	assert.Contains(t, body, "Could not update cart")
	assert.Contains(t, body, "Your cart is empty")
}

func TestFormCart_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postForm(t, "/cart/items", url.Values{"product_id": {"999"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Product not found")
}

func TestFormCart_CheckoutEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.postForm(t, "/cart/checkout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))

	_, body := env.get(t, "/cart")
	assert.Contains(t, body, checkout.NoticeEmptyCart)
	assert.Empty(t, env.outbox.AllPending())
}

func TestAPI_Products(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.sendJSON(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 24, body["count"])

	resp, body = env.sendJSON(t, http.MethodGet, "/api/products/9", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	product := body["product"].(map[string]any)
	assert.Equal(t, "Ray-Ban Aviator Sunglasses", product["name"])

	resp, body = env.sendJSON(t, http.MethodGet, "/api/products/999", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Product not found", body["error"])
}

type cartResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Cart    struct {
		Lines   []domain.CartLine   `json:"lines"`
		Summary domain.OrderSummary `json:"summary"`
	} `json:"cart"`
}

func (e *testEnv) cartCall(t *testing.T, method, path, body string) (*http.Response, cartResponse) {
	t.Helper()
	resp, raw := e.do(t, method, path, "application/json", body)

	var decoded cartResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded), raw)
	return resp, decoded
}

func TestAPI_CartLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, got := env.cartCall(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, got.Cart.Lines)
	assert.True(t, got.Cart.Summary.Total.IsZero())

	resp, got = env.cartCall(t, http.MethodPost, "/api/cart/items", `{"productId": 18}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Resistance Bands Set added to cart!", got.Message)

	resp, got = env.cartCall(t, http.MethodPost, "/api/cart/items", `{"name":"Masala Chai","price":"250","image":"chai.png"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, got.Cart.Lines, 2)

	summary := got.Cart.Summary
	assert.True(t, summary.Subtotal.Equal(decimal.NewFromInt(1749)), summary.Subtotal.String())
	assert.True(t, summary.Tax.Equal(decimal.NewFromInt(315)), summary.Tax.String())
	assert.True(t, summary.Shipping.IsZero())
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(2064)), summary.Total.String())
	assert.True(t, summary.FreeShipping)

	resp, got = env.cartCall(t, http.MethodPatch, "/api/cart/items/2", `{"delta": 2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, got.Cart.Lines[1].Quantity)

	resp, got = env.cartCall(t, http.MethodPatch, "/api/cart/items/1", `{"delta": -1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got.Cart.Lines, 1)
	assert.Equal(t, "Masala Chai", got.Cart.Lines[0].ProductName)

	resp, got = env.cartCall(t, http.MethodDelete, "/api/cart/items/2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, noticeRemoved, got.Message)
	assert.Empty(t, got.Cart.Lines)

	env.cartCall(t, http.MethodPost, "/api/cart/items", `{"productId": "20"}`)
	resp, got = env.cartCall(t, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, noticeCleared, got.Message)
	assert.Empty(t, got.Cart.Lines)
}

func TestAPI_AddItemValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "empty body", body: ``, status: http.StatusBadRequest},
		{name: "malformed json", body: `{"name":`, status: http.StatusBadRequest},
		{name: "negative price", body: `{"name":"Broken","price":-5}`, status: http.StatusBadRequest},
		{name: "missing price", body: `{"name":"Broken"}`, status: http.StatusBadRequest},
		{name: "unknown product", body: `{"productId": 999}`, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.sendJSON(t, http.MethodPost, "/api/cart/items", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAPI_Checkout(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.sendJSON(t, http.MethodPost, "/api/cart/checkout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, checkout.NoticeEmptyCart, body["notice"])

	env.cartCall(t, http.MethodPost, "/api/cart/items", `{"productId": 24}`)

	resp, body = env.sendJSON(t, http.MethodPost, "/api/cart/checkout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, "AB12CD34", body["orderReference"])
	assert.Equal(t, checkout.NoticePlaced, body["notice"])

	// 1299 + 234 налога, доставка бесплатна.
	summary := body["summary"].(map[string]any)
	assert.Equal(t, "1533", summary["total"])

	_, got := env.cartCall(t, http.MethodGet, "/api/cart", "")
	assert.Empty(t, got.Cart.Lines)
}

func TestAPI_Contact(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.sendJSON(t, http.MethodPost, "/api/contact", `{"firstName":"Asha","email":"asha@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.MsgContactRequired, body["error"])
	assert.Empty(t, env.outbox.AllPending())

	form := url.Values{
		"firstName": {"Asha"},
		"lastName":  {"Rao"},
		"email":     {"asha@example.com"},
		"subject":   {"order"},
		"message":   {"Where is my parcel?"},
	}
	resp, raw := env.postForm(t, "/api/contact", form)
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	assert.Contains(t, raw, "received")

	pending := env.outbox.AllPending()
	require.Len(t, pending, 1)
	assert.Equal(t, domain.EventContactReceived, pending[0].EventType)
	assert.Equal(t, domain.AggregateContact, pending[0].AggregateType)

	var submission domain.ContactSubmission
	require.NoError(t, json.Unmarshal(pending[0].Payload, &submission))
	assert.Equal(t, "Rao", submission.LastName)
	assert.False(t, submission.SubmittedAt.IsZero())

	assert.Equal(t, 1, env.observer.accepted[formContact])
	assert.Equal(t, 1, env.observer.rejected[formContact])
}

func TestAPI_Newsletter(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.sendJSON(t, http.MethodPost, "/api/newsletter", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.MsgNewsletterInvalid, body["error"])

	resp, body = env.sendJSON(t, http.MethodPost, "/api/newsletter", `{"email":" Ravi@Example.com "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, msgNewsletterSubscribed, body["message"])

	pending := env.outbox.AllPending()
	require.Len(t, pending, 1)
	assert.Equal(t, domain.EventNewsletterSubscribed, pending[0].EventType)
	assert.Equal(t, "ravi@example.com", pending[0].AggregateID)
}

func TestAPI_SignupValidate(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.sendJSON(t, http.MethodPost, "/api/signup/validate",
		`{"fullName":"A","email":"bad","password":"short","confirmPassword":"other"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
	errs := body["errors"].(map[string]any)
	assert.Len(t, errs, 4)

	resp, body = env.sendJSON(t, http.MethodPost, "/api/signup/validate",
		`{"fullName":"Asha Rao","email":"asha@example.com","password":"Secret#123","confirmPassword":"Secret#123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.EqualValues(t, 4, body["strength"])
	assert.Equal(t, "Strong", body["strengthLabel"])
}

func TestAPI_Promo(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.sendJSON(t, http.MethodPost, "/api/promo", `{"code":" indiakart10 "}`)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, domain.MsgPromoApplied, body["message"])

	_, body = env.sendJSON(t, http.MethodPost, "/api/promo", `{"code":"FREE"}`)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, domain.MsgPromoInvalid, body["message"])
}

func TestAPI_UnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.sendJSON(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, body = env.sendJSON(t, http.MethodPut, "/api/cart", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestInstrument_UsesRouteTemplate(t *testing.T) {
	env := newTestEnv(t)

	env.get(t, "/product/3")
	env.get(t, "/product/4")

	env.observer.mu.Lock()
	defer env.observer.mu.Unlock()
	assert.Equal(t, []string{"GET /product/{id}", "GET /product/{id}"}, env.observer.routes)
}

func TestRecoverPanics(t *testing.T) {
	tests := []struct {
		name        string
		development bool
		want        string
	}{
		{name: "production hides detail", development: false, want: "Something went wrong"},
		{name: "development shows detail", development: true, want: "panic: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, WithDevelopment(tt.development))
			handler := env.server.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic("boom")
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}
