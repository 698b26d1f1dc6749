package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records storefront activity. A nil *Metrics is a no-op.
type Metrics struct {
	cartMutations       *prometheus.CounterVec
	promoValidations    *prometheus.CounterVec
	checkouts           *prometheus.CounterVec
	collaboratorLatency *prometheus.HistogramVec
	httpDuration        *prometheus.HistogramVec
}

// New registers the storefront metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation.",
	}, []string{"op"})
	promoValidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_promo_validations_total",
		Help: "Promo code validations by result.",
	}, []string{"result"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	collaboratorLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_collaborator_request_seconds",
		Help:    "Latency of calls to collaborator APIs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_seconds",
		Help:    "Duration of HTTP requests served.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(cartMutations, promoValidations, checkouts, collaboratorLatency, httpDuration)
	return &Metrics{
		cartMutations:       cartMutations,
		promoValidations:    promoValidations,
		checkouts:           checkouts,
		collaboratorLatency: collaboratorLatency,
		httpDuration:        httpDuration,
	}
}

// IncCartMutation counts a cart write.
func (m *Metrics) IncCartMutation(op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncPromoValidation counts a promo validation result.
func (m *Metrics) IncPromoValidation(result string) {
	if m == nil || m.promoValidations == nil {
		return
	}
	m.promoValidations.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncCheckout counts a checkout outcome.
func (m *Metrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveCollaborator records the latency of a collaborator call.
func (m *Metrics) ObserveCollaborator(endpoint, outcome string, duration time.Duration) {
	if m == nil || m.collaboratorLatency == nil {
		return
	}
	m.collaboratorLatency.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(outcome)).Observe(duration.Seconds())
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
