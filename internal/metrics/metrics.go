// Package metrics records token processing outcomes in Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes used as the "outcome" label of TokensValidated.
const (
	OutcomeValid    = "valid"
	OutcomeRejected = "rejected"
)

// Operations used as the "operation" label of OperationDuration.
const (
	OperationSign   = "sign"
	OperationVerify = "verify"
)

// Recorder holds the processor's collectors.
type Recorder struct {
	TokensProduced    *prometheus.CounterVec
	TokensValidated   *prometheus.CounterVec
	TokensRejected    *prometheus.CounterVec
	SignatureMismatch prometheus.Counter
	OperationDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		TokensProduced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jws_tokens_produced_total",
				Help: "Tokens signed, by algorithm",
			},
			[]string{"alg"},
		),
		TokensValidated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jws_tokens_validated_total",
				Help: "Token validations, by outcome",
			},
			[]string{"outcome"},
		),
		TokensRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jws_tokens_rejected_total",
				Help: "Rejected tokens, by reason",
			},
			[]string{"reason"},
		),
		SignatureMismatch: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "jws_signature_mismatch_total",
				Help: "Tokens whose signature did not verify",
			},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jws_operation_duration_seconds",
				Help:    "Sign and verify duration",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordProduced(alg string, duration time.Duration) {
	r.TokensProduced.WithLabelValues(alg).Inc()
	r.OperationDuration.WithLabelValues(OperationSign).Observe(duration.Seconds())
}

func (r *Recorder) RecordValid(duration time.Duration) {
	r.TokensValidated.WithLabelValues(OutcomeValid).Inc()
	r.OperationDuration.WithLabelValues(OperationVerify).Observe(duration.Seconds())
}

// RecordRejected counts a failed validation under reason. mismatch marks a
// signature that did not verify.
func (r *Recorder) RecordRejected(reason string, mismatch bool, duration time.Duration) {
	r.TokensValidated.WithLabelValues(OutcomeRejected).Inc()
	r.TokensRejected.WithLabelValues(reason).Inc()
	if mismatch {
		r.SignatureMismatch.Inc()
	}
	r.OperationDuration.WithLabelValues(OperationVerify).Observe(duration.Seconds())
}
