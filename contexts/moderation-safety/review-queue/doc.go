// Package reviewqueue implements the moderation review queue inside the
// moderation-safety context.
//
// The module owns reviewable lifecycle orchestration (signal intake, action
// catalogs, version-checked transitions), score aggregation with per-user
// flag counters, and queue event production through outbox-backed workers.
// It keeps business rules in application/domain layers and isolates
// infrastructure concerns behind ports and adapters.
package reviewqueue
