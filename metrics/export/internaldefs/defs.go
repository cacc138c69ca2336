package internaldefs

import (
	sessionkit "github.com/convopanel/sessionkit"
)

// CounterDef binds a core MetricID to its exported name and help text.
type CounterDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram MetricID to its exported name and help text.
type HistogramDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: sessionkit.MetricSessionCreated, Name: "sessionkit_session_created_total", Help: "Created sessions."},
	{ID: sessionkit.MetricSessionCreatedDegraded, Name: "sessionkit_session_created_degraded_total", Help: "Sessions created mirror-only during a volatile store outage."},
	{ID: sessionkit.MetricSessionEvicted, Name: "sessionkit_session_evicted_total", Help: "Sessions evicted at the per-subject concurrency cap."},
	{ID: sessionkit.MetricValidateSuccess, Name: "sessionkit_validate_success_total", Help: "Validations that passed every check."},
	{ID: sessionkit.MetricValidateFailure, Name: "sessionkit_validate_failure_total", Help: "Validations that failed any check."},
	{ID: sessionkit.MetricSessionExpired, Name: "sessionkit_session_expired_total", Help: "Validations rejected on expiry."},
	{ID: sessionkit.MetricSessionRefreshed, Name: "sessionkit_session_refreshed_total", Help: "Activity refreshes."},
	{ID: sessionkit.MetricSessionRevoked, Name: "sessionkit_session_revoked_total", Help: "Single-session revocations."},
	{ID: sessionkit.MetricRevokeAll, Name: "sessionkit_revoke_all_total", Help: "Bulk per-subject revocations."},
	{ID: sessionkit.MetricSessionRegenerated, Name: "sessionkit_session_regenerated_total", Help: "Session regenerations after privilege drift."},
	{ID: sessionkit.MetricPrivilegeDrift, Name: "sessionkit_privilege_drift_total", Help: "Detected issue-time vs current role drifts."},
	{ID: sessionkit.MetricStoreUnavailable, Name: "sessionkit_store_unavailable_total", Help: "Volatile store outages observed by any operation."},
	{ID: sessionkit.MetricMirrorWriteFailure, Name: "sessionkit_mirror_write_failure_total", Help: "Best-effort durable mirror writes that failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: sessionkit.MetricValidateLatency, Name: "sessionkit_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the metric-name-safe renderings of
// HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice into the fixed
// bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
