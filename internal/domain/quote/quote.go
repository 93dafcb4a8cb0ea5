package quote

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/quotemuse/internal/domain"
)

// MaxTextSize is the maximum quote text size in bytes.
const MaxTextSize = 8192

// DefaultTagDelimiter separates tags in raw dataset records.
const DefaultTagDelimiter = ";"

// Record is a raw dataset entry before vectorization.
type Record struct {
	Text    string
	Author  string
	TagsRaw string
}

// Quote is the quote aggregate (immutable value object once stored).
type Quote struct {
	id     string
	text   string
	author string
	tags   map[string]struct{}
	vector []float32
}

// New validates and creates a Quote.
// Text: non-empty, max 8KB. Author may be empty. Tags are deduplicated.
func New(id, text, author string, tags []string) (Quote, error) {
	if id == "" {
		return Quote{}, fmt.Errorf("quote ID is required: %w", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(text) == "" {
		return Quote{}, fmt.Errorf("quote text is required: %w", domain.ErrInvalidArgument)
	}
	if len(text) > MaxTextSize {
		return Quote{}, fmt.Errorf("quote text too large (max %d bytes): %w", MaxTextSize, domain.ErrInvalidArgument)
	}

	return Quote{
		id:     id,
		text:   text,
		author: author,
		tags:   tagSet(tags),
	}, nil
}

// Reconstruct creates a Quote without validation (storage hydration).
func Reconstruct(id, text, author string, tags []string, vector []float32) Quote {
	return Quote{id: id, text: text, author: author, tags: tagSet(tags), vector: vector}
}

// ID returns the quote identifier.
func (q *Quote) ID() string { return q.id }

// Text returns the quote text.
func (q *Quote) Text() string { return q.text }

// Author returns the quote author.
func (q *Quote) Author() string { return q.author }

// Tags returns the tag set in sorted order.
func (q *Quote) Tags() []string {
	if len(q.tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(q.tags))
	for t := range q.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasTag reports whether the quote carries the given tag.
func (q *Quote) HasTag(tag string) bool {
	_, ok := q.tags[tag]
	return ok
}

// Vector returns the embedding vector.
func (q *Quote) Vector() []float32 { return q.vector }

// SetVector attaches the embedding vector (used once during ingestion).
func (q *Quote) SetVector(v []float32) { q.vector = v }

// ParseTags splits a delimiter-joined raw tag string into a normalized tag
// slice. Whitespace around tags is trimmed, empty entries are dropped, and
// duplicates collapse. An empty or blank input yields nil (empty set).
func ParseTags(raw, delimiter string) []string {
	if delimiter == "" {
		delimiter = DefaultTagDelimiter
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, part := range strings.Split(raw, delimiter) {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}
