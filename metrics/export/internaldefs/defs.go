package internaldefs

import (
	"strconv"
	"strings"

	catalogAuth "github.com/MrEthical07/catalogAuth"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   catalogAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   catalogAuth.MetricID
	Name string
	Help string
}

// BucketCount is the number of histogram buckets, the last one unbounded.
const BucketCount = 8

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: catalogAuth.MetricLoginSuccess, Name: "catalogauth_login_success_total", Help: "Successful logins."},
	{ID: catalogAuth.MetricLoginFailure, Name: "catalogauth_login_failure_total", Help: "Logins rejected for unknown username or wrong password."},
	{ID: catalogAuth.MetricLoginInactive, Name: "catalogauth_login_inactive_total", Help: "Logins rejected because the account is inactive."},
	{ID: catalogAuth.MetricLoginRateLimited, Name: "catalogauth_login_rate_limited_total", Help: "Logins rejected by the failed-attempt throttle."},
	{ID: catalogAuth.MetricRegisterSuccess, Name: "catalogauth_register_success_total", Help: "Successful self-registrations."},
	{ID: catalogAuth.MetricRegisterDuplicate, Name: "catalogauth_register_duplicate_total", Help: "Registrations rejected for a taken username."},
	{ID: catalogAuth.MetricLogout, Name: "catalogauth_logout_total", Help: "Logouts that destroyed a binding."},
	{ID: catalogAuth.MetricSessionCreated, Name: "catalogauth_session_created_total", Help: "Created session bindings."},
	{ID: catalogAuth.MetricSessionInvalidated, Name: "catalogauth_session_invalidated_total", Help: "Destroyed session bindings."},
	{ID: catalogAuth.MetricAccessDenied, Name: "catalogauth_access_denied_total", Help: "Role checks that denied access."},
	{ID: catalogAuth.MetricPasswordChangeSuccess, Name: "catalogauth_password_change_success_total", Help: "Successful password changes."},
	{ID: catalogAuth.MetricPasswordChangeInvalidOld, Name: "catalogauth_password_change_invalid_old_total", Help: "Password changes rejected for a wrong current password."},
	{ID: catalogAuth.MetricUserCreated, Name: "catalogauth_user_created_total", Help: "Accounts created by administrators."},
	{ID: catalogAuth.MetricUserStatusChanged, Name: "catalogauth_user_status_changed_total", Help: "Account activations and deactivations."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: catalogAuth.MetricVerifyLatency, Name: "catalogauth_verify_latency_seconds", Help: "Credential verification latency."},
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const AuditDroppedName = "catalogauth_audit_dropped_total"

// HistogramBounds are the Prometheus "le" labels, derived from
// catalogAuth.HistogramBounds.
var HistogramBounds = bucketLabels(func(s string) string { return s }, "+Inf")

// HistogramBoundSuffix are instrument-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = bucketLabels(func(s string) string { return strings.ReplaceAll(s, ".", "_") }, "inf")

func bucketLabels(format func(string) string, last string) []string {
	out := make([]string, 0, BucketCount)
	for _, d := range catalogAuth.HistogramBounds {
		out = append(out, format(strconv.FormatFloat(d.Seconds(), 'f', -1, 64)))
	}
	return append(out, last)
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
