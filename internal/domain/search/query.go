package search

// Query describes a semantic search request against the quote collection.
type Query struct {
	// Text is the free-text input to embed and match against.
	Text string
	// Limit caps the number of returned matches. Must be >= 1.
	Limit int
	// Author, if non-empty, requires an exact author match.
	Author string
	// Tags, if non-empty, requires every listed tag to be present.
	Tags []string
	// MinScore, if > 0, drops matches scoring below it.
	MinScore float64
}
