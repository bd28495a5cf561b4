package master

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	ethercat "github.com/samsamfire/goethercat"
)

// Metrics exposes a Master's steady-state counters as a prometheus.Collector
// so a host process can register it without the core engine depending on an
// HTTP server.
type Metrics struct {
	mu sync.Mutex

	pdataInvalidWkc uint64
	pdataLost       uint64
	dcInvalidWkc    uint64
	dcLost          uint64
	rxErrorLost     uint64
	alStateLost     uint64
	alState         ethercat.AlState

	pdataInvalidWkcDesc *prometheus.Desc
	pdataLostDesc       *prometheus.Desc
	dcInvalidWkcDesc    *prometheus.Desc
	dcLostDesc          *prometheus.Desc
	rxErrorLostDesc     *prometheus.Desc
	alStateLostDesc     *prometheus.Desc
	alStateDesc         *prometheus.Desc
}

func newMetrics() *Metrics {
	return &Metrics{
		pdataInvalidWkcDesc: prometheus.NewDesc(
			"ethercat_pdata_invalid_wkc_total", "Process-data datagrams whose working counter didn't match expectation.", nil, nil),
		pdataLostDesc: prometheus.NewDesc(
			"ethercat_pdata_lost_datagrams_total", "Process-data cycles whose datagram never returned.", nil, nil),
		dcInvalidWkcDesc: prometheus.NewDesc(
			"ethercat_dc_drift_invalid_wkc_total", "Distributed-clock drift rounds whose working counter didn't match the DC slave count.", nil, nil),
		dcLostDesc: prometheus.NewDesc(
			"ethercat_dc_drift_lost_replies_total", "Distributed-clock drift rounds whose reply never returned.", nil, nil),
		rxErrorLostDesc: prometheus.NewDesc(
			"ethercat_rx_error_lost_replies_total", "RX-error counter reads whose reply never returned.", nil, nil),
		alStateLostDesc: prometheus.NewDesc(
			"ethercat_al_state_lost_replies_total", "AL-state reads whose reply never returned.", nil, nil),
		alStateDesc: prometheus.NewDesc(
			"ethercat_al_state", "Current broadcast application-layer state (bitmask of the AL-status register).", nil, nil),
	}
}

func (m *Metrics) Describe(descs chan<- *prometheus.Desc) {
	descs <- m.pdataInvalidWkcDesc
	descs <- m.pdataLostDesc
	descs <- m.dcInvalidWkcDesc
	descs <- m.dcLostDesc
	descs <- m.rxErrorLostDesc
	descs <- m.alStateLostDesc
	descs <- m.alStateDesc
}

func (m *Metrics) Collect(metrics chan<- prometheus.Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics <- prometheus.MustNewConstMetric(m.pdataInvalidWkcDesc, prometheus.CounterValue, float64(m.pdataInvalidWkc))
	metrics <- prometheus.MustNewConstMetric(m.pdataLostDesc, prometheus.CounterValue, float64(m.pdataLost))
	metrics <- prometheus.MustNewConstMetric(m.dcInvalidWkcDesc, prometheus.CounterValue, float64(m.dcInvalidWkc))
	metrics <- prometheus.MustNewConstMetric(m.dcLostDesc, prometheus.CounterValue, float64(m.dcLost))
	metrics <- prometheus.MustNewConstMetric(m.rxErrorLostDesc, prometheus.CounterValue, float64(m.rxErrorLost))
	metrics <- prometheus.MustNewConstMetric(m.alStateLostDesc, prometheus.CounterValue, float64(m.alStateLost))
	metrics <- prometheus.MustNewConstMetric(m.alStateDesc, prometheus.GaugeValue, float64(m.alState))
}

func (m *Metrics) setPdataCounters(invalidWkc, lost uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdataInvalidWkc = invalidWkc
	m.pdataLost = lost
}

func (m *Metrics) setDcCounters(invalidWkc, lost uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dcInvalidWkc = invalidWkc
	m.dcLost = lost
}

func (m *Metrics) setRxErrorLost(v uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rxErrorLost = v
}

func (m *Metrics) setAlStateLost(v uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alStateLost = v
}

func (m *Metrics) setAlState(s ethercat.AlState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alState = s
}
