// Package prometheus renders catalogAuth metrics in the Prometheus text
// exposition format.
//
// [New] takes a [catalogAuth.Authority]; mount [Exporter.Handler] at /metrics.
// Counters are named catalogauth_*_total and the one histogram is
// catalogauth_verify_latency_seconds. Nothing is registered globally.
package prometheus
