package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/vault"
)

const namespace = "vault"

// Service owns the prometheus registry of the process and records vault
// workflow events as metrics.
type Service struct {
	Registry *prometheus.Registry

	snapshotBlock        prometheus.Gauge
	snapshotsRead        prometheus.Counter
	readFailures         prometheus.Counter
	submitted            *prometheus.CounterVec
	confirmed            *prometheus.CounterVec
	rejected             *prometheus.CounterVec
	confirmationFailures *prometheus.CounterVec
	confirmationDuration *prometheus.HistogramVec
}

func New(cfg config.Server) (*Service, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Service{Registry: reg}
	if !cfg.Prometheus.VaultMetrics {
		return s, nil
	}

	factory := promauto.With(reg)
	labels := []string{"workflow", "tx_kind"}

	s.snapshotBlock = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_block_number",
		Help:      "Block number of the latest published snapshot",
	})
	s.snapshotsRead = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_read_total",
		Help:      "Total number of snapshots published",
	})
	s.readFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "read_failures_total",
		Help:      "Total number of failed snapshot reads",
	})
	s.submitted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_submitted_total",
		Help:      "Total number of broadcast transactions",
	}, labels)
	s.confirmed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_confirmed_total",
		Help:      "Total number of transactions that reached the confirmation threshold",
	}, labels)
	s.rejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_rejected_total",
		Help:      "Total number of transactions rejected before broadcast",
	}, labels)
	s.confirmationFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmation_failures_total",
		Help:      "Total number of broadcast transactions that reverted or never confirmed",
	}, labels)
	s.confirmationDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "confirmation_duration_seconds",
		Help:      "Time from broadcast to confirmation",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
	}, labels)

	return s, nil
}

// Report implements vault.Sink.
func (s *Service) Report(_ context.Context, e vault.Event) {
	if s.snapshotBlock == nil {
		return
	}

	switch e.Type {
	case vault.EventSnapshotUpdated:
		s.snapshotsRead.Inc()
		s.snapshotBlock.Set(float64(e.BlockNumber))
	case vault.EventReadFailure:
		s.readFailures.Inc()
	case vault.EventTxSubmitted:
		s.submitted.WithLabelValues(string(e.Workflow), string(e.TxKind)).Inc()
	case vault.EventTxConfirmed:
		s.confirmed.WithLabelValues(string(e.Workflow), string(e.TxKind)).Inc()
		if !e.SubmittedAt.IsZero() && !e.At.IsZero() {
			s.confirmationDuration.WithLabelValues(string(e.Workflow), string(e.TxKind)).Observe(e.At.Sub(e.SubmittedAt).Seconds())
		}
	case vault.EventSubmissionRejected:
		s.rejected.WithLabelValues(string(e.Workflow), string(e.TxKind)).Inc()
	case vault.EventConfirmationFailure:
		s.confirmationFailures.WithLabelValues(string(e.Workflow), string(e.TxKind)).Inc()
	}
}
