// Package otel exposes novelAuth metrics as OpenTelemetry observable
// instruments.
//
// [New] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per cumulative histogram bucket. One callback reads
// the engine snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
