// Package variantref classifies the variant reference accepted on the
// checkout entry URL. Canonical variant identifiers are UUIDs; anything
// else is treated as a human-readable slug and routed to the slug lookup.
package variantref

import (
	"strings"

	"github.com/google/uuid"
)

// Kind names the lookup strategy a reference resolves through.
type Kind string

const (
	KindID   Kind = "id"
	KindSlug Kind = "slug"
	KindNone Kind = "none"
)

// Classify reports how the given reference should be resolved. The decision
// is purely structural so it can be tested without any transport in play.
func Classify(ref string) Kind {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return KindNone
	}
	// uuid.Parse accepts a few legacy encodings (braced, urn-prefixed);
	// only the canonical 36-char form counts as an identifier here.
	if len(trimmed) == 36 {
		if _, err := uuid.Parse(trimmed); err == nil {
			return KindID
		}
	}
	return KindSlug
}
