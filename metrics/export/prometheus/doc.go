// Package prometheus renders novelAuth metrics in the Prometheus text
// exposition format.
//
// [New] takes any [Source], typically the *novelAuth.Engine, and [Exporter.Handler]
// serves the text on each scrape. Counters are named novelauth_*_total and the
// credential attempt latency histogram is
// novelauth_credential_attempt_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in a global registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
