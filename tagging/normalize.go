package tagging

import "strings"

// Default segment length band: only segments longer than minSegment
// and shorter than maxSegment survive normalization.
const (
	defaultMinSegment = 2
	defaultMaxSegment = 15
)

// PathNormalizer collapses raw URL paths into bounded-cardinality
// labels.
//
// This is a deliberate approximation, not a route-table lookup. Two
// heuristics are applied in order:
//
//  1. Literal substring substitutions collapse known route aliases to
//     canonical tokens. The rule set is configuration; an empty set is
//     valid.
//  2. A segment length band drops both near-empty segments (likely
//     static route fragments) and long opaque identifiers (likely
//     UUIDs or hashes) from the label.
//
// The result is lossy and order-dependent. Callers that need exact
// route resolution should supply known routers via WithRouters and
// wait for router-aware resolution to exist; today the routers input
// is accepted but unused.
type PathNormalizer struct {
	subs    []Rule
	minSeg  int
	maxSeg  int
	routers []string
}

// Rule is one literal substring replacement applied to the raw path.
type Rule struct {
	From string
	To   string
}

// NormalizerOption configures a PathNormalizer
type NormalizerOption func(*PathNormalizer)

// WithSegmentBand overrides the default segment length band.
// Only segments with minSeg < len < maxSeg are kept.
func WithSegmentBand(minSeg, maxSeg int) NormalizerOption {
	return func(n *PathNormalizer) {
		n.minSeg = minSeg
		n.maxSeg = maxSeg
	}
}

// WithRouters supplies known routers for future router-aware
// resolution. The current normalizer accepts and ignores them.
func WithRouters(routers ...string) NormalizerOption {
	return func(n *PathNormalizer) {
		n.routers = routers
	}
}

// NewPathNormalizer creates a normalizer with the given substitution
// rules. Rules apply in order; later rules see earlier rules' output.
func NewPathNormalizer(rules []Rule, opts ...NormalizerOption) *PathNormalizer {
	n := &PathNormalizer{
		subs:   rules,
		minSeg: defaultMinSegment,
		maxSeg: defaultMaxSegment,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize collapses a raw slash-delimited path into its label form.
// Normalization is idempotent: running it on its own output returns
// the same string.
func (n *PathNormalizer) Normalize(path string) string {
	for _, r := range n.subs {
		path = strings.ReplaceAll(path, r.From, r.To)
	}

	segments := strings.Split(path, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if len(seg) > n.minSeg && len(seg) < n.maxSeg {
			kept = append(kept, seg)
		}
	}

	return strings.Join(kept, "/")
}
