package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters/histograms for the WhatsApp bot flows. All
// observe methods are nil-safe so wiring stays optional in tests.
type BotMetrics struct {
	inboundTotal    *prometheus.CounterVec
	bookingAttempts *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainerbot",
			Subsystem: "whatsapp",
			Name:      "inbound_messages_total",
			Help:      "Total inbound WhatsApp webhook messages",
		}, []string{"status"}),
		bookingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainerbot",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Total booking attempts against the scheduling provider",
		}, []string{"flow", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trainerbot",
			Subsystem: "whatsapp",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one full conversation turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.bookingAttempts, m.turnLatency)
	return m
}

func (m *BotMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *BotMetrics) ObserveBookingAttempt(flow, outcome string) {
	if m == nil {
		return
	}
	m.bookingAttempts.WithLabelValues(flow, outcome).Inc()
}

func (m *BotMetrics) ObserveTurnLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(status).Observe(seconds)
}
