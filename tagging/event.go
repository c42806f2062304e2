package tagging

import (
	"strconv"
	"strings"
)

// Event is one request-completion event as delivered by the external
// event source. The transport is out of scope; only the shape matters.
//
// Request is nil when the completion event never carried a usable
// request context (e.g., the connection died before routing). Such
// events are counted by the invalid-request metric group, not tagged.
type Event struct {
	Request *RequestInfo
}

// RequestInfo carries the request fields tag extraction reads.
//
// Status is deliberately untyped: upstream sources deliver it as an
// integer, as a string with a leading code ("404 Not Found"), or not
// at all. The extractor distinguishes those shapes.
type RequestInfo struct {
	Status interface{}
	Method string
	Path   string
}

// HasRequest reports whether the event carries a request-shaped payload
func (e Event) HasRequest() bool {
	return e.Request != nil
}

// UndefinedStatus is the sentinel tag value for a status of an
// unrecognized dynamic type.
const UndefinedStatus = "undefined"

// coerceStatus turns a raw status value into its tag string.
// ok is false only when the status is absent entirely; that case is
// distinct from an unrecognized shape, which yields UndefinedStatus.
func coerceStatus(status interface{}) (value string, ok bool) {
	switch s := status.(type) {
	case nil:
		return "", false
	case int:
		return strconv.Itoa(s), true
	case string:
		// "404 Not Found" style inputs: keep the leading token
		if tok := strings.Fields(s); len(tok) > 0 {
			return tok[0], true
		}
		return UndefinedStatus, true
	default:
		return UndefinedStatus, true
	}
}
