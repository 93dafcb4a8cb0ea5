package quotes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/quotemuse/internal/db"
	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
)

// DefaultKeyPrefix namespaces all quote keys in the store.
const DefaultKeyPrefix = "quotemuse:"

// store is the consumer interface for quote persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds HNSW index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo stores quote documents as hashes behind an FT vector index.
type Repo struct {
	store      store
	collection string
	prefix     string
	dim        int
	hnsw       HNSWConfig
}

// New creates a quote repository for a single collection with vectors of
// dimension dim (fixed at collection creation).
func New(s store, collection string, dim int) *Repo {
	return &Repo{
		store:      s,
		collection: collection,
		prefix:     DefaultKeyPrefix,
		dim:        dim,
	}
}

// WithKeyPrefix overrides the key prefix.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// WithHNSW configures HNSW index build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// Setup creates the collection index. Idempotent: an existing index is left
// in place.
func (r *Repo) Setup(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.keyPrefix()},
		Fields: []db.IndexField{
			{Name: fieldAuthor, Type: db.IndexFieldTag},
			{Name: fieldTags, Type: db.IndexFieldTag, TagSeparator: tagSeparator},
			{
				Name:              fieldVector,
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Teardown drops the collection index and deletes every stored quote.
func (r *Repo) Teardown(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("%s: %w", r.collection, domain.ErrCollectionNotFound)
		}
		return fmt.Errorf("drop index %s: %w", r.indexName(), err)
	}

	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan quote keys: %w", err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// InsertBatch stores the given quotes in a single pipelined round-trip and
// returns the number inserted. Quotes with a wrong vector dimension are
// rejected before anything is written.
func (r *Repo) InsertBatch(ctx context.Context, batch []quote.Quote) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	items := make([]db.HashSetItem, len(batch))
	for i := range batch {
		q := &batch[i]
		if r.dim > 0 && len(q.Vector()) != r.dim {
			return 0, fmt.Errorf(
				"quote %s: got vector dimension %d, want %d: %w",
				q.ID(), len(q.Vector()), r.dim, domain.ErrVectorDimMismatch,
			)
		}
		items[i] = db.HashSetItem{
			Key:    r.key(q.ID()),
			Fields: buildHashFields(q),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("insert %d quotes: %w", len(items), err)
	}
	return len(items), nil
}

// SearchKNN runs a filtered vector similarity search and returns matches in
// non-increasing score order, at most limit entries.
func (r *Repo) SearchKNN(
	ctx context.Context, f search.Filter, vector []float32, limit int,
) ([]search.Match, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Filter:       f,
		Vector:       vector,
		K:            limit,
		ReturnFields: []string{fieldText, fieldAuthor, fieldTags, "__vector_score"},
	})
	if err != nil {
		if isUnknownIndex(err) {
			return nil, fmt.Errorf("%s: %w", r.collection, domain.ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("search knn %s: %w", r.collection, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	matches := make([]search.Match, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, r.keyPrefix())
		matches = append(matches, parseEntry(id, entry))
	}

	// The store returns hits distance-sorted already; keep the ordering
	// invariant explicit regardless of backend behavior.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score() > matches[j].Score()
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Count returns the number of stored quotes.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		if isUnknownIndex(err) {
			return 0, fmt.Errorf("%s: %w", r.collection, domain.ErrCollectionNotFound)
		}
		return 0, fmt.Errorf("count %s: %w", r.collection, err)
	}
	return n, nil
}

func (r *Repo) keyPrefix() string {
	return r.prefix + r.collection + ":"
}

func (r *Repo) key(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) indexName() string {
	return r.prefix + r.collection + ":idx"
}

func isUnknownIndex(err error) bool {
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		return false
	}
	return strings.Contains(strings.ToLower(dbErr.Err.Error()), "no such index") ||
		strings.Contains(strings.ToLower(dbErr.Err.Error()), "unknown index")
}
