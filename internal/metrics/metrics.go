// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the videowall daemon.
// No high-cardinality labels (no session IDs, no client addresses).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlaybackState tracks the current state machine state (one-hot gauge).
	PlaybackState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "videowall_playback_state",
		Help: "Current playback state (1 for the active state, 0 otherwise).",
	}, []string{"state"})

	// CommandTotal counts received trigger commands by command and result.
	CommandTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videowall_command_total",
		Help: "Total number of trigger commands received, by command and result.",
	}, []string{"command", "result"})

	// CommandDiscardTotal counts malformed or rate-limited datagrams.
	CommandDiscardTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videowall_command_discard_total",
		Help: "Total number of discarded trigger datagrams, by reason.",
	}, []string{"reason"})

	// TransferTotal counts file transfer attempts by result.
	TransferTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videowall_transfer_total",
		Help: "Total number of file transfer attempts, by result (ok/busy/error).",
	}, []string{"result"})

	// TransferBytes counts payload bytes of successfully received videos.
	TransferBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videowall_transfer_bytes_total",
		Help: "Total payload bytes of successfully received video files.",
	})

	// TransferDuration tracks the duration of successful transfers.
	TransferDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "videowall_transfer_duration_seconds",
		Help:    "Duration of successful file transfers.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	// DecoderLaunchTotal counts decoder process launches by result.
	DecoderLaunchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videowall_decoder_launch_total",
		Help: "Total number of decoder process launches, by result.",
	}, []string{"result"})

	// DecoderExitTotal counts decoder process exits by reason.
	DecoderExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videowall_decoder_exit_total",
		Help: "Total number of decoder process exits, by reason (stopped/unexpected).",
	}, []string{"reason"})

	// ProcTerminateTotal counts termination signals sent to the decoder group.
	ProcTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videowall_proc_terminate_total",
		Help: "Total number of termination signals sent to the decoder process group.",
	}, []string{"signal", "result"})

	// ControlWriteTotal counts control channel writes by result.
	ControlWriteTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videowall_control_write_total",
		Help: "Total number of control channel writes, by instruction and result.",
	}, []string{"instruction", "result"})
)

// SetPlaybackState records the active state on the one-hot gauge.
func SetPlaybackState(active string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == active {
			v = 1.0
		}
		PlaybackState.WithLabelValues(s).Set(v)
	}
}

// IncCommand records a trigger command outcome.
func IncCommand(command, result string) {
	CommandTotal.WithLabelValues(command, result).Inc()
}

// IncCommandDiscard records a discarded datagram.
func IncCommandDiscard(reason string) {
	CommandDiscardTotal.WithLabelValues(reason).Inc()
}

// IncTransfer records a transfer attempt outcome.
func IncTransfer(result string) {
	TransferTotal.WithLabelValues(result).Inc()
}

// IncProcTerminate records a termination signal outcome.
func IncProcTerminate(signal, result string) {
	ProcTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncControlWrite records a control channel write outcome.
func IncControlWrite(instruction, result string) {
	ControlWriteTotal.WithLabelValues(instruction, result).Inc()
}
