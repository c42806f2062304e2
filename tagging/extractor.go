package tagging

import (
	"github.com/teletap/teletap/core"
)

// Tag keys present in every non-empty TagSet.
const (
	TagStatus = "status"
	TagMethod = "method"
	TagPath   = "path"
)

// TagSet is the extracted tag dimensions for one event. Either all
// three keys are present or the set is empty; an empty set signals a
// malformed event that was logged and must not be recorded.
type TagSet map[string]string

// Extractor derives bounded-cardinality tags from request-completion
// events. It holds no per-event state; Extract is safe for concurrent
// use on the hot request-completion path.
type Extractor struct {
	normalizer *PathNormalizer
	logger     core.Logger
}

// NewExtractor creates a tag extractor. A nil normalizer gets a
// default one with an empty substitution rule set; a nil logger is
// replaced with a no-op logger.
func NewExtractor(normalizer *PathNormalizer, logger core.Logger) *Extractor {
	if normalizer == nil {
		normalizer = NewPathNormalizer(nil)
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Extractor{
		normalizer: normalizer,
		logger:     logger,
	}
}

// Extract derives the tag set for one event.
//
// An absent status (or an event with no request payload at all) is a
// malformed event: it is logged at warning level and yields an empty
// TagSet, so the caller skips the observation. A status of an
// unrecognized type still yields a full tag set with the literal
// "undefined" as the status dimension; only true absence empties the
// set.
func (e *Extractor) Extract(evt Event) TagSet {
	if !evt.HasRequest() {
		e.logger.Warn("Event carries no request payload, tags unavailable", map[string]interface{}{
			"operation": "extract_tags",
		})
		return TagSet{}
	}

	status, ok := coerceStatus(evt.Request.Status)
	if !ok {
		e.logger.Warn("Event status is absent, tags unavailable", map[string]interface{}{
			"operation": "extract_tags",
			"method":    evt.Request.Method,
			"path":      evt.Request.Path,
		})
		return TagSet{}
	}

	return TagSet{
		TagStatus: status,
		TagMethod: evt.Request.Method,
		TagPath:   e.normalizer.Normalize(evt.Request.Path),
	}
}

// InvalidRequestTags returns the fixed tag set recorded for events
// that never carried a usable request context. This is a separate
// code path from Extract, not a fallthrough of it.
func InvalidRequestTags() TagSet {
	return TagSet{
		TagStatus: "404",
		TagMethod: "XXX",
		TagPath:   "invalid",
	}
}
