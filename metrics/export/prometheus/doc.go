// Package prometheus renders kvauth adapter metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] reads from an [kvauth.Adapter] and exposes an
// [http.Handler]. Counter names are kvauth_*_total; the single histogram is
// kvauth_operation_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate adapter state.
package prometheus
