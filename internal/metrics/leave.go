// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors for the leave lifecycle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OTP verification outcomes.
const (
	OTPSuccess   = "success"
	OTPMismatch  = "mismatch" // wrong, expired or replayed code
	OTPMalformed = "malformed"
	OTPDenied    = "denied" // forbidden or unknown request
	OTPError     = "error"  // backend failure
)

var (
	leaveTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leavegate_leave_transitions_total",
		Help: "Applied lifecycle transitions by event and states",
	}, []string{"event", "from", "to"})

	leaveSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leavegate_leave_submissions_total",
		Help: "Leave submissions by outcome",
	}, []string{"result"}) // result=accepted|rejected

	leaveRejectedOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leavegate_leave_rejected_ops_total",
		Help: "Engine operations refused, by operation and reason",
	}, []string{"op", "reason"}) // reason=validation|forbidden|not_found|invalid_transition

	otpVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leavegate_otp_verifications_total",
		Help: "OTP verification attempts by outcome",
	}, []string{"outcome"})

	otpIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leavegate_otp_issued_total",
		Help: "OTP challenges issued by outcome",
	}, []string{"result"}) // result=success|error

	engineOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leavegate_engine_op_seconds",
		Help:    "Lifecycle engine operation latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leavegate_config_reloads_total",
		Help: "Configuration reloads by result",
	}, []string{"result"})
)

// RecordTransition counts an applied lifecycle transition.
func RecordTransition(event, from, to string) {
	leaveTransitions.WithLabelValues(event, from, to).Inc()
}

// RecordSubmission counts a submission attempt.
func RecordSubmission(accepted bool) {
	if accepted {
		leaveSubmissions.WithLabelValues("accepted").Inc()
		return
	}
	leaveSubmissions.WithLabelValues("rejected").Inc()
}

// RecordRejected counts a refused engine operation.
func RecordRejected(op, reason string) {
	leaveRejectedOps.WithLabelValues(op, reason).Inc()
}

// RecordOTPVerification counts a verification attempt.
func RecordOTPVerification(outcome string) {
	otpVerifications.WithLabelValues(outcome).Inc()
}

// RecordOTPIssued counts an issue attempt.
func RecordOTPIssued(ok bool) {
	if ok {
		otpIssued.WithLabelValues("success").Inc()
		return
	}
	otpIssued.WithLabelValues("error").Inc()
}

// ObserveEngineOp records the duration of an engine operation since start.
func ObserveEngineOp(op string, start time.Time) {
	engineOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordConfigReload counts a reload attempt.
func RecordConfigReload(ok bool) {
	if ok {
		configReloads.WithLabelValues("success").Inc()
		return
	}
	configReloads.WithLabelValues("failure").Inc()
}
