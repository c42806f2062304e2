// Package teletap is an in-process telemetry pipeline that turns raw
// request-completion events and periodic process introspection into
// low-cardinality, exporter-ready metric observations.
//
// Two independent components do the work:
//
//   - tagging derives a stable {status, method, path} tag set per
//     completed request and decides, via caller predicates, whether
//     the event should be recorded at all
//   - sampling periodically snapshots named worker processes, tracks
//     deltas for monotonic counters, and emits the single most extreme
//     process per tick as a last-value observation
//
// The Pipeline type in this package wires both to a configuration and
// an observation sink. The sink is external (see otelsink for an
// OpenTelemetry adapter); teletap never stores, scrapes or serializes
// metrics itself.
package teletap
