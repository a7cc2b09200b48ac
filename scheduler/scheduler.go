// Package scheduler drives the periodic background activities of the
// screener backend:
// - Live payload broadcast to WebSocket subscribers
// - Multi-interval market data collection for the watch list
// - Universe index synchronization with cascade pruning
// - Retention pruning of stale history
//
// Each activity runs on its own fixed period, independent of the request
// serving path. The jobs are implemented in jobs.go
package scheduler
