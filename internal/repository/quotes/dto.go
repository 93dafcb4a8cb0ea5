package quotes

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/kailas-cloud/quotemuse/internal/db"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
)

// Hash field names. Double-underscore fields are internal to the index
// schema; author and tags are filterable TAG fields.
const (
	fieldText   = "__text"
	fieldVector = "__vector"
	fieldAuthor = "author"
	fieldTags   = "tags"
)

// tagSeparator joins the tag set into a single TAG field value.
const tagSeparator = ","

// buildHashFields converts a quote into a flat map[string]string for HSET.
func buildHashFields(q *quote.Quote) map[string]string {
	return map[string]string{
		fieldText:   q.Text(),
		fieldVector: vectorToBytes(q.Vector()),
		fieldAuthor: q.Author(),
		fieldTags:   strings.Join(q.Tags(), tagSeparator),
	}
}

// parseEntry converts a search hit's hash fields into a search.Match.
func parseEntry(id string, entry db.SearchEntry) search.Match {
	var tags []string
	if raw := entry.Fields[fieldTags]; raw != "" {
		tags = strings.Split(raw, tagSeparator)
	}
	return search.NewMatch(
		id,
		entry.Fields[fieldText],
		entry.Fields[fieldAuthor],
		tags,
		entry.Score,
	)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float,
// little-endian), the FT vector field wire format.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
