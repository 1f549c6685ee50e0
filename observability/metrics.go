package observability

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"bountychain/native/bounty"
)

// BountyMetrics bundles the collectors tracking JSON-RPC activity against the
// bounty ledger.
type BountyMetrics struct {
	requests    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	chainHeight prometheus.Gauge
	pauseGauge  prometheus.Gauge
}

var (
	bountyMetricsOnce sync.Once
	bountyRegistry    *BountyMetrics
)

// Bounty returns the lazily-initialised metrics registry used to record
// bounty RPC activity.
func Bounty() *BountyMetrics {
	bountyMetricsOnce.Do(func() {
		bountyRegistry = &BountyMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bountychain",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method.",
			}, []string{"method"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bountychain",
				Subsystem: "rpc",
				Name:      "failures_total",
				Help:      "Total JSON-RPC failures segmented by method and ledger error code.",
			}, []string{"method", "code"}),
			chainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "bountychain",
				Subsystem: "chain",
				Name:      "height",
				Help:      "Current block height of the local ledger.",
			}),
			pauseGauge: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "bountychain",
				Subsystem: "ledger",
				Name:      "pause_engaged",
				Help:      "Indicates whether the bounty module pause guard is active (1) or not (0).",
			}),
		}
		prometheus.MustRegister(
			bountyRegistry.requests,
			bountyRegistry.failures,
			bountyRegistry.chainHeight,
			bountyRegistry.pauseGauge,
		)
	})
	return bountyRegistry
}

// RecordRequest increments the request counter for the supplied method.
func (m *BountyMetrics) RecordRequest(method string) {
	if m == nil {
		return
	}
	if method = strings.TrimSpace(method); method == "" {
		method = "unknown"
	}
	m.requests.WithLabelValues(method).Inc()
}

// RecordFailure increments the failure counter, labelling ledger errors with
// their stable numeric code and everything else as "internal".
func (m *BountyMetrics) RecordFailure(method string, err error) {
	if m == nil || err == nil {
		return
	}
	if method = strings.TrimSpace(method); method == "" {
		method = "unknown"
	}
	code := "internal"
	var ledgerErr *bounty.Error
	if errors.As(err, &ledgerErr) {
		code = "u" + strconv.FormatUint(uint64(ledgerErr.Code), 10)
	}
	m.failures.WithLabelValues(method, code).Inc()
}

// SetChainHeight updates the height gauge after a block tick.
func (m *BountyMetrics) SetChainHeight(height uint64) {
	if m == nil {
		return
	}
	m.chainHeight.Set(float64(height))
}

// SetPause toggles the pause_engaged gauge.
func (m *BountyMetrics) SetPause(engaged bool) {
	if m == nil {
		return
	}
	if engaged {
		m.pauseGauge.Set(1)
		return
	}
	m.pauseGauge.Set(0)
}
