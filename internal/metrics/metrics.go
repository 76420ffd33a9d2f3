package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeScope/internal/model"
)

const namespace = "tradescope"

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	BlocksProcessed   prometheus.Counter
	TxEvaluated       prometheus.Counter
	MatchesEmitted    prometheus.Counter
	TransfersEmitted  prometheus.Counter
	ResolveFailures   prometheus.Counter
	PollErrors        prometheus.Counter
	DecodeIssues      *prometheus.CounterVec
	SwapsDecoded      *prometheus.CounterVec
	SinkFailures      *prometheus.CounterVec
	ChainHead         prometheus.Gauge
	HeldCandidates    prometheus.Gauge
	BlockEvalDuration prometheus.Histogram
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BlocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "blocks_processed_total", Help: "Blocks evaluated by the watch pipeline.",
		}),
		TxEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "transactions_evaluated_total", Help: "Transactions checked against the value threshold.",
		}),
		MatchesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_emitted_total", Help: "Qualifying trades delivered to the consumer.",
		}),
		TransfersEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "transfers_emitted_total", Help: "Large token transfers delivered to the consumer.",
		}),
		ResolveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "resolve_failures_total", Help: "Transactions skipped because chain data was unavailable.",
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "poll_errors_total", Help: "Failed head or block fetches.",
		}),
		DecodeIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "decode_issues_total", Help: "Swap logs dropped during decoding.",
		}, []string{"kind"}),
		SwapsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "swaps_decoded_total", Help: "Swap events decoded by protocol.",
		}, []string{"protocol"}),
		SinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sink_failures_total", Help: "Failed publications by sink.",
		}, []string{"sink"}),
		ChainHead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "chain_head", Help: "Latest observed block number.",
		}),
		HeldCandidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "held_candidates", Help: "Qualifying transactions waiting for confirmations.",
		}),
		BlockEvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "block_eval_seconds", Help: "Time spent evaluating one block.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.BlocksProcessed,
		m.TxEvaluated,
		m.MatchesEmitted,
		m.TransfersEmitted,
		m.ResolveFailures,
		m.PollErrors,
		m.DecodeIssues,
		m.SwapsDecoded,
		m.SinkFailures,
		m.ChainHead,
		m.HeldCandidates,
		m.BlockEvalDuration,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) BlockProcessed(number uint64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BlocksProcessed.Inc()
	m.BlockEvalDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) TxChecked() {
	if m == nil {
		return
	}
	m.TxEvaluated.Inc()
}

func (m *Metrics) MatchEmitted() {
	if m == nil {
		return
	}
	m.MatchesEmitted.Inc()
}

func (m *Metrics) TransferEmitted() {
	if m == nil {
		return
	}
	m.TransfersEmitted.Inc()
}

func (m *Metrics) ResolveFailed() {
	if m == nil {
		return
	}
	m.ResolveFailures.Inc()
}

func (m *Metrics) PollFailed() {
	if m == nil {
		return
	}
	m.PollErrors.Inc()
}

func (m *Metrics) Head(number uint64) {
	if m == nil {
		return
	}
	m.ChainHead.Set(float64(number))
}

func (m *Metrics) Held(n int) {
	if m == nil {
		return
	}
	m.HeldCandidates.Set(float64(n))
}

// Decoded records decoded swaps and dropped logs of one transaction.
func (m *Metrics) Decoded(swaps []model.SwapEvent, issues []model.DecodeIssue) {
	if m == nil {
		return
	}
	for _, swap := range swaps {
		m.SwapsDecoded.WithLabelValues(string(swap.Protocol)).Inc()
	}
	for _, issue := range issues {
		m.DecodeIssues.WithLabelValues(string(issue.Kind)).Inc()
	}
}

func (m *Metrics) SinkFailed(name string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(name).Inc()
}
