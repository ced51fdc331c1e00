// Package metrics содержит Prometheus-метрики витрины.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/indiakart/internal/cart"
	"github.com/vladislavdragonenkov/indiakart/internal/checkout"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
	"github.com/vladislavdragonenkov/indiakart/internal/service/outbox"
	"github.com/vladislavdragonenkov/indiakart/internal/service/sweeper"
)

// StorefrontMetrics собирает метрики корзины, оформления, HTTP, outbox и
// очистки снимков.
type StorefrontMetrics struct {
	// Корзина
	cartMutations *prometheus.CounterVec
	cartLines     prometheus.Histogram

	// Оформление заказа
	checkouts     *prometheus.CounterVec
	checkoutTotal prometheus.Histogram

	// HTTP
	httpDuration *prometheus.HistogramVec

	// Формы
	formSubmissions *prometheus.CounterVec

	// Outbox
	outboxPublish   *prometheus.CounterVec
	outboxPending   prometheus.Gauge
	outboxOldestAge prometheus.Gauge

	// Очистка снимков
	sweepRuns    *prometheus.CounterVec
	sweepDeleted prometheus.Counter
}

// NewStorefrontMetrics регистрирует метрики в DefaultRegisterer.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStorefrontMetricsWithRegisterer регистрирует метрики в заданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		cartMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "indiakart_cart_mutations_total",
			Help: "Total number of persisted cart mutations by operation",
		}, []string{"operation"}),
		cartLines: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "indiakart_cart_lines",
			Help:    "Number of lines in a cart after a mutation",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		checkouts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "indiakart_checkouts_total",
			Help: "Total number of checkout attempts by result",
		}, []string{"result"}),
		checkoutTotal: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "indiakart_checkout_total_inr",
			Help:    "Order total of accepted checkouts in rupees",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000},
		}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "indiakart_http_request_duration_seconds",
			Help:    "Duration of storefront HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
		formSubmissions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "indiakart_form_submissions_total",
			Help: "Total number of form submissions by form and result",
		}, []string{"form", "result"}),
		outboxPublish: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "indiakart_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts by event type and result",
		}, []string{"event_type", "result"}),
		outboxPending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "indiakart_outbox_pending_records",
			Help: "Current number of pending records in the outbox",
		}),
		outboxOldestAge: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "indiakart_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record",
		}),
		sweepRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "indiakart_snapshot_sweep_runs_total",
			Help: "Total number of expired snapshot sweeps by result",
		}, []string{"result"}),
		sweepDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "indiakart_snapshot_sweep_deleted_total",
			Help: "Total number of deleted expired cart snapshots",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	return register(registerer, opts.Name, prometheus.NewCounter(opts)).(prometheus.Counter)
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	return register(registerer, opts.Name, prometheus.NewCounterVec(opts, labels)).(*prometheus.CounterVec)
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	return register(registerer, opts.Name, prometheus.NewGauge(opts)).(prometheus.Gauge)
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	return register(registerer, opts.Name, prometheus.NewHistogram(opts)).(prometheus.Histogram)
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	return register(registerer, opts.Name, prometheus.NewHistogramVec(opts, labels)).(*prometheus.HistogramVec)
}

// register регистрирует коллектор или возвращает уже зарегистрированный.
// Коллектор другого типа с тем же именем — ошибка программиста.
func register(registerer prometheus.Registerer, name string, collector prometheus.Collector) prometheus.Collector {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}
	alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	existing := alreadyRegistered.ExistingCollector
	if fmt.Sprintf("%T", existing) != fmt.Sprintf("%T", collector) {
		panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
	}
	return existing
}

// ObserveCartMutation совместим с cart.MutationHook.
func (m *StorefrontMetrics) ObserveCartMutation(_ context.Context, op cart.Operation, lines []domain.CartLine) {
	m.cartMutations.WithLabelValues(string(op)).Inc()
	m.cartLines.Observe(float64(len(lines)))
}

// ObserveCheckout реализует checkout.Observer.
func (m *StorefrontMetrics) ObserveCheckout(accepted bool, total float64) {
	if !accepted {
		m.checkouts.WithLabelValues("empty_cart").Inc()
		return
	}
	m.checkouts.WithLabelValues("placed").Inc()
	m.checkoutTotal.Observe(total)
}

// ObserveHTTPRequest записывает длительность запроса по шаблону маршрута.
func (m *StorefrontMetrics) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveForm учитывает отправку формы contact/newsletter/signup/promo.
func (m *StorefrontMetrics) ObserveForm(form string, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.formSubmissions.WithLabelValues(form, result).Inc()
}

// ObservePublish реализует outbox.Observer.
func (m *StorefrontMetrics) ObservePublish(eventType, result string) {
	m.outboxPublish.WithLabelValues(eventType, result).Inc()
}

// ObserveBacklog реализует outbox.Observer.
func (m *StorefrontMetrics) ObserveBacklog(pending int, oldestAge time.Duration) {
	m.outboxPending.Set(float64(pending))
	m.outboxOldestAge.Set(oldestAge.Seconds())
}

// ObserveSweep реализует sweeper.Observer.
func (m *StorefrontMetrics) ObserveSweep(deleted int, err error) {
	if err != nil {
		m.sweepRuns.WithLabelValues("error").Inc()
		return
	}
	m.sweepRuns.WithLabelValues("ok").Inc()
	m.sweepDeleted.Add(float64(deleted))
}

var (
	_ cart.MutationHook = (&StorefrontMetrics{}).ObserveCartMutation
	_ checkout.Observer = (*StorefrontMetrics)(nil)
	_ outbox.Observer   = (*StorefrontMetrics)(nil)
	_ sweeper.Observer  = (*StorefrontMetrics)(nil)
)
