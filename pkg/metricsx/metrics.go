package metricsx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder 扫描过程的Prometheus指标
type Recorder struct {
	passesTotal    prometheus.Counter
	candidates     prometheus.Counter
	alertsSent     *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	passDuration   prometheus.Histogram
}

// New reg 传入 prometheus.DefaultRegisterer, 测试中传独立的 registry
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		passesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "scanner_passes_total",
			Help: "Total number of completed scan passes",
		}),
		candidates: factory.NewCounter(prometheus.CounterOpts{
			Name: "scanner_candidates_evaluated_total",
			Help: "Total number of candidates evaluated",
		}),
		alertsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_alerts_sent_total",
			Help: "Total number of alerts delivered",
		}, []string{"type"}),
		providerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_provider_errors_total",
			Help: "Total number of provider/storage/notify errors",
		}, []string{"kind"}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_pass_duration_seconds",
			Help:    "Duration of one scan pass in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) RecordPass(duration time.Duration) {
	r.passesTotal.Inc()
	r.passDuration.Observe(duration.Seconds())
}

func (r *Recorder) RecordCandidate() {
	r.candidates.Inc()
}

func (r *Recorder) RecordAlert(alertType string) {
	r.alertsSent.WithLabelValues(alertType).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.providerErrors.WithLabelValues(kind).Inc()
}
