// Package otel publishes catalogAuth metrics through an OpenTelemetry Meter.
//
// [New] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads
// [catalogAuth.Authority.MetricsSnapshot] on every collection. Callers own
// the MeterProvider.
package otel
