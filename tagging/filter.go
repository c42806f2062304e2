package tagging

import "strings"

// shapePrefixLimit bounds how much of a path is inspected when
// decoding its route shape.
const shapePrefixLimit = 100

// Predicate is a caller-supplied event test. Predicates run on the
// request-completion path and must not block.
type Predicate func(Event) bool

// Filter decides whether an event should be dropped before recording.
// It composes up to two caller predicates with a structural guard:
//
//   - the allow slot drops events the predicate does not allow
//   - the deny slot drops events the predicate denies
//
// The structural guard splits the event stream on request payload
// presence and each filter accepts exactly one side. The regular
// request filter keeps request-shaped events and drops the rest (a
// malformed event must not pollute the main metrics); the
// invalid-request filter keeps only events with no request payload
// (malformed input is exactly what that counter counts) and drops
// every well-formed one. The two sides never overlap.
type Filter struct {
	allow       Predicate
	deny        Predicate
	wantRequest bool
}

// FilterOption configures a Filter
type FilterOption func(*Filter)

// WithAllow installs the allow predicate: events it rejects are dropped
func WithAllow(pred Predicate) FilterOption {
	return func(f *Filter) {
		f.allow = pred
	}
}

// WithDeny installs the deny predicate: events it accepts are dropped
func WithDeny(pred Predicate) FilterOption {
	return func(f *Filter) {
		f.deny = pred
	}
}

// WithRouteFilter installs a route-shape deny predicate
func WithRouteFilter(rf *RouteFilter) FilterOption {
	return func(f *Filter) {
		f.deny = func(evt Event) bool {
			return rf.Denies(evt.Request.Path)
		}
	}
}

// NewRequestFilter builds the filter for regular request metrics.
// Events with no request payload are dropped.
func NewRequestFilter(opts ...FilterOption) *Filter {
	f := &Filter{wantRequest: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewInvalidRequestFilter builds the filter for the invalid-request
// counter. Only events with no request payload pass through; a
// well-formed event belongs to the regular metrics and is dropped.
func NewInvalidRequestFilter(opts ...FilterOption) *Filter {
	f := &Filter{wantRequest: false}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ShouldDrop reports whether the event must not be recorded.
// The structural guard runs first; predicates never see an event
// without a request payload.
func (f *Filter) ShouldDrop(evt Event) bool {
	if !evt.HasRequest() {
		return f.wantRequest
	}
	if !f.wantRequest {
		return true
	}
	if f.allow != nil && !f.allow(evt) {
		return true
	}
	if f.deny != nil && f.deny(evt) {
		return true
	}
	return false
}

// RouteShape identifies a route by its first path segment and total
// segment count.
type RouteShape struct {
	First    string
	Segments int
}

// RouteFilter drops events by static route membership. A path is
// denied when its first segment is in the ignore set and its decoded
// shape is not carved out by the allow set; the allow set is an
// override of the ignore set, not an independent filter.
type RouteFilter struct {
	ignore map[string]struct{}
	allow  map[RouteShape]struct{}
}

// NewRouteFilter builds a route filter from an ignore list of first
// path segments and an allow list of shapes.
func NewRouteFilter(ignore []string, allow []RouteShape) *RouteFilter {
	rf := &RouteFilter{
		ignore: make(map[string]struct{}, len(ignore)),
		allow:  make(map[RouteShape]struct{}, len(allow)),
	}
	for _, seg := range ignore {
		rf.ignore[seg] = struct{}{}
	}
	for _, shape := range allow {
		rf.allow[shape] = struct{}{}
	}
	return rf
}

// Denies reports whether the path's route is ignored
func (rf *RouteFilter) Denies(path string) bool {
	shape := DecodeShape(path)
	if _, ignored := rf.ignore[shape.First]; !ignored {
		return false
	}
	_, carved := rf.allow[shape]
	return !carved
}

// DecodeShape derives the route shape of a path. Only the first
// shapePrefixLimit characters are inspected; longer paths cannot
// change the decision by appending segments past the prefix.
func DecodeShape(path string) RouteShape {
	if len(path) > shapePrefixLimit {
		path = path[:shapePrefixLimit]
	}

	var first string
	count := 0
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if count == 0 {
			first = seg
		}
		count++
	}

	return RouteShape{First: first, Segments: count}
}
