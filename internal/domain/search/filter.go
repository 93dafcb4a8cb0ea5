package search

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/quotemuse/internal/domain"
)

// MaxFilterTags caps the number of tags in a single filter.
const MaxFilterTags = 32

// Filter constrains matches by quote metadata: author equality AND presence
// of every listed tag (conjunctive semantics). The zero value matches every
// document.
type Filter struct {
	author string
	tags   []string
}

// NewFilter validates and creates a Filter. Blank tags are dropped and
// duplicates collapse.
func NewFilter(author string, tags []string) (Filter, error) {
	seen := make(map[string]struct{}, len(tags))
	var clean []string
	for _, t := range tags {
		tag := strings.TrimSpace(t)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		clean = append(clean, tag)
	}
	if len(clean) > MaxFilterTags {
		return Filter{}, fmt.Errorf("too many filter tags (max %d): %w", MaxFilterTags, domain.ErrInvalidArgument)
	}
	return Filter{author: strings.TrimSpace(author), tags: clean}, nil
}

// Author returns the required author, or "" if unconstrained.
func (f Filter) Author() string { return f.author }

// Tags returns the tags that must all be present on a match.
func (f Filter) Tags() []string { return f.tags }

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool {
	return f.author == "" && len(f.tags) == 0
}
