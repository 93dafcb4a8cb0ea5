package search

// Match is a single similarity search hit.
type Match struct {
	id     string
	text   string
	author string
	tags   []string
	score  float64
}

// NewMatch creates a search match.
func NewMatch(id, text, author string, tags []string, score float64) Match {
	return Match{id: id, text: text, author: author, tags: tags, score: score}
}

// ID returns the quote identifier.
func (m *Match) ID() string { return m.id }

// Text returns the quote text.
func (m *Match) Text() string { return m.text }

// Author returns the quote author.
func (m *Match) Author() string { return m.author }

// Tags returns the quote tags.
func (m *Match) Tags() []string { return m.tags }

// Score returns the rescaled cosine similarity in [0,1].
func (m *Match) Score() float64 { return m.score }
