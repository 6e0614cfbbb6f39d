// Package diagnostics builds sign-in troubleshooting reports: identity
// backend health and latency, infrastructure probes, the cookies a client
// sent and browser tracking protections known to drop them.
package diagnostics
