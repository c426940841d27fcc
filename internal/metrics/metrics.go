// Package metrics defines the Prometheus metrics das2go exposes for a
// long-running stream reader (SPEC_FULL.md's diagnostics section): packets
// decoded, decode errors by category, bytes read off the wire, and current
// Dataset memory footprint. Grounded on m-lab-tcp-info's metrics package
// (same promauto.NewCounterVec/NewGauge registration-at-import-time style).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsDecoded counts data packets successfully decoded, by packet id.
	PacketsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "das2go_packets_decoded_total",
			Help: "Number of data packets successfully decoded, by packet id.",
		}, []string{"pkt_id"})

	// DecodeErrors counts decode failures, by errs.Category string.
	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "das2go_decode_errors_total",
			Help: "Number of decode failures, by error category.",
		}, []string{"category"})

	// BytesRead counts raw bytes consumed from the underlying stream source.
	BytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "das2go_bytes_read_total",
			Help: "Total bytes read from the stream source.",
		},
	)

	// DatasetMemUsed gauges the current estimated byte footprint of all
	// live Dataset arrays, by stream id.
	DatasetMemUsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "das2go_dataset_mem_used_bytes",
			Help: "Estimated memory footprint of live dataset arrays.",
		}, []string{"stream_id"})
)
