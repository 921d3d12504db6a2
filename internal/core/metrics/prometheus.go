package metrics

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================================
// PromReporter - Prometheus 实现
// ============================================================================

// PromReporter 基于 Prometheus 的 Reporter
type PromReporter struct {
	events      *prometheus.CounterVec
	blocked     *prometheus.CounterVec
	failed      *prometheus.CounterVec
	duplicates  prometheus.Counter
	bytesOut    prometheus.Counter
	bytesIn     prometheus.Counter
	activeLinks prometheus.Gauge
	linkDowns   *prometheus.CounterVec

	rateIn  *RateMeter
	rateOut *RateMeter
}

// NewPromReporter 创建 Prometheus 指标并注册到 reg
func NewPromReporter(namespace string, reg prometheus.Registerer, clk clock.Clock) (*PromReporter, error) {
	r := &PromReporter{
		rateIn:  NewRateMeter(clk),
		rateOut: NewRateMeter(clk),
	}

	r.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_processed_total",
		Help:      "Total number of dispatched events by origin and type",
	}, []string{"origin", "type"})

	r.blocked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_blocked_total",
		Help:      "Total number of local requests that had to wait",
	}, []string{"type"})

	r.failed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_failed_total",
		Help:      "Total number of requests completed with nack",
	}, []string{"type"})

	r.duplicates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_events_total",
		Help:      "Total number of duplicate remote events dropped",
	})

	r.bytesOut = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_sent_total",
		Help:      "Total bytes written to the channel",
	})

	r.bytesIn = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_received_total",
		Help:      "Total bytes read from the channel",
	})

	r.activeLinks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_links",
		Help:      "Number of links currently up",
	})

	r.linkDowns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "link_down_total",
		Help:      "Total number of link terminations by reason",
	}, []string{"reason"})

	rateOut := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "send_rate_bytes",
		Help:      "Average send rate over the last minute in bytes per second",
	}, r.rateOut.Rate)

	rateIn := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "receive_rate_bytes",
		Help:      "Average receive rate over the last minute in bytes per second",
	}, r.rateIn.Rate)

	if reg != nil {
		collectors := []prometheus.Collector{
			r.events, r.blocked, r.failed, r.duplicates,
			r.bytesOut, r.bytesIn, r.activeLinks, r.linkDowns,
			rateOut, rateIn,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register metrics: %w", err)
			}
		}
	}
	return r, nil
}

func (r *PromReporter) EventProcessed(origin, eventType string) {
	r.events.WithLabelValues(origin, eventType).Inc()
}

func (r *PromReporter) EventBlocked(eventType string) {
	r.blocked.WithLabelValues(eventType).Inc()
}

func (r *PromReporter) EventFailed(eventType string) {
	r.failed.WithLabelValues(eventType).Inc()
}

func (r *PromReporter) DuplicateEvent() {
	r.duplicates.Inc()
}

func (r *PromReporter) BytesSent(n int) {
	r.bytesOut.Add(float64(n))
	r.rateOut.Add(int64(n))
}

func (r *PromReporter) BytesReceived(n int) {
	r.bytesIn.Add(float64(n))
	r.rateIn.Add(int64(n))
}

func (r *PromReporter) LinkUp() {
	r.activeLinks.Inc()
}

func (r *PromReporter) LinkDown(reason string) {
	r.activeLinks.Dec()
	r.linkDowns.WithLabelValues(reason).Inc()
}

// Totals 返回收发统计
func (r *PromReporter) Totals() Stats {
	return Stats{
		TotalIn:  r.rateIn.Total(),
		TotalOut: r.rateOut.Total(),
		RateIn:   r.rateIn.Rate(),
		RateOut:  r.rateOut.Rate(),
	}
}
