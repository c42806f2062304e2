// Package tagging turns raw request-completion events into stable,
// bounded-cardinality tag sets and decides, via caller-supplied
// predicates, whether an event should be recorded at all.
//
// The package is stateless and synchronous: everything here runs on
// the request-completion path, once per event, without I/O or locks.
// Cardinality is bounded heuristically through path normalization
// (see PathNormalizer); the strategy is pluggable configuration, not
// a fixed requirement.
package tagging
