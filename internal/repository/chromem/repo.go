// Package chromem backs the quote collection with an embedded chromem-go
// store. It serves local and demo runs where no Redis is available; the
// contract matches the Redis-backed repository.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
)

const (
	metaAuthor    = "author"
	metaTags      = "tags"
	metaTagPrefix = "tag:"
	tagSeparator  = ","
)

// Repo stores quote documents in a chromem-go collection.
type Repo struct {
	db         *chromem.DB
	collection string
	dim        int

	mu  sync.Mutex
	col *chromem.Collection
}

// New creates a chromem-backed quote repository. An empty path selects an
// in-memory store; otherwise documents persist under path.
func New(path, collection string, dim int) (*Repo, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", path, err)
		}
		db = d
	}

	return &Repo{db: db, collection: collection, dim: dim}, nil
}

// Setup creates the collection. Idempotent.
func (r *Repo) Setup(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	col, err := r.db.GetOrCreateCollection(r.collection, nil, rejectEmbedding)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", r.collection, err)
	}
	r.col = col
	return nil
}

// Teardown removes the collection and all of its documents.
func (r *Repo) Teardown(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.col == nil {
		return fmt.Errorf("%s: %w", r.collection, domain.ErrCollectionNotFound)
	}
	if err := r.db.DeleteCollection(r.collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", r.collection, err)
	}
	r.col = nil
	return nil
}

// InsertBatch stores the given quotes and returns the number inserted.
func (r *Repo) InsertBatch(ctx context.Context, batch []quote.Quote) (int, error) {
	col, err := r.ready()
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, len(batch))
	for i := range batch {
		q := &batch[i]
		if r.dim > 0 && len(q.Vector()) != r.dim {
			return 0, fmt.Errorf(
				"quote %s: got vector dimension %d, want %d: %w",
				q.ID(), len(q.Vector()), r.dim, domain.ErrVectorDimMismatch,
			)
		}
		docs[i] = chromem.Document{
			ID:        q.ID(),
			Metadata:  buildMetadata(q),
			Embedding: q.Vector(),
			Content:   q.Text(),
		}
	}

	// Sequential add: ingestion is batch-at-a-time, concurrency adds nothing here.
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("add %d documents: %w", len(docs), err)
	}
	return len(docs), nil
}

// SearchKNN runs a filtered similarity search and returns matches in
// non-increasing score order, at most limit entries.
func (r *Repo) SearchKNN(
	ctx context.Context, f search.Filter, vector []float32, limit int,
) ([]search.Match, error) {
	col, err := r.ready()
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults beyond the stored document count.
	k := limit
	if n := col.Count(); k > n {
		k = n
	}
	if k == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, k, buildWhere(f), nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", r.collection, err)
	}

	matches := make([]search.Match, 0, len(results))
	for _, res := range results {
		matches = append(matches, search.NewMatch(
			res.ID,
			res.Content,
			res.Metadata[metaAuthor],
			splitTags(res.Metadata[metaTags]),
			similarityToScore(res.Similarity),
		))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score() > matches[j].Score()
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Count returns the number of stored quotes.
func (r *Repo) Count(_ context.Context) (int, error) {
	col, err := r.ready()
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

func (r *Repo) ready() (*chromem.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.col == nil {
		return nil, fmt.Errorf("%s: %w", r.collection, domain.ErrCollectionNotFound)
	}
	return r.col, nil
}

// buildMetadata flattens author and tags into chromem metadata. Each tag gets
// its own presence key so that the conjunctive where-filter can require all
// of them at once.
func buildMetadata(q *quote.Quote) map[string]string {
	tags := q.Tags()
	m := make(map[string]string, 2+len(tags))
	m[metaAuthor] = q.Author()
	m[metaTags] = strings.Join(tags, tagSeparator)
	for _, t := range tags {
		m[metaTagPrefix+t] = "1"
	}
	return m
}

// buildWhere translates a search.Filter into a chromem metadata filter.
// All entries must match, which gives the required AND semantics.
func buildWhere(f search.Filter) map[string]string {
	if f.IsEmpty() {
		return nil
	}
	where := make(map[string]string, 1+len(f.Tags()))
	if f.Author() != "" {
		where[metaAuthor] = f.Author()
	}
	for _, t := range f.Tags() {
		where[metaTagPrefix+t] = "1"
	}
	return where
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, tagSeparator)
}

// similarityToScore rescales chromem cosine similarity [-1,1] to [0,1]:
// 1.0 = identical direction, 0.0 = opposite.
func similarityToScore(sim float32) float64 {
	score := (float64(sim) + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// rejectEmbedding guards against accidental text-side embedding: every
// document and query in this system arrives with an externally computed
// vector.
func rejectEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("chromem: embeddings are computed externally")
}
