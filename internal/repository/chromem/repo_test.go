package chromem

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/quotemuse/internal/domain"
	"github.com/kailas-cloud/quotemuse/internal/domain/quote"
	"github.com/kailas-cloud/quotemuse/internal/domain/search"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New("", "quotes", 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := repo.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return repo
}

func insert(t *testing.T, repo *Repo, id, text, author string, tags []string, vec []float32) {
	t.Helper()
	q, err := quote.New(id, text, author, tags)
	if err != nil {
		t.Fatalf("quote.New: %v", err)
	}
	q.SetVector(vec)
	if _, err := repo.InsertBatch(context.Background(), []quote.Quote{q}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
}

func mustFilter(t *testing.T, author string, tags []string) search.Filter {
	t.Helper()
	f, err := search.NewFilter(author, tags)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	return f
}

func TestSearchKNN_OrdersByDescendingScore(t *testing.T) {
	repo := newTestRepo(t)
	insert(t, repo, "far", "orthogonal", "c", nil, []float32{0, 1, 0, 0})
	insert(t, repo, "near", "identical", "a", nil, []float32{1, 0, 0, 0})
	insert(t, repo, "mid", "close", "b", nil, []float32{0.9, 0.1, 0, 0})

	matches, err := repo.SearchKNN(context.Background(), search.Filter{}, []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}

	wantOrder := []string{"near", "mid", "far"}
	for i, want := range wantOrder {
		if matches[i].ID() != want {
			t.Errorf("position %d: expected %s, got %s", i, want, matches[i].ID())
		}
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score() > matches[i-1].Score() {
			t.Errorf("scores not non-increasing at %d: %f > %f", i, matches[i].Score(), matches[i-1].Score())
		}
	}
	for _, m := range matches {
		if m.Score() < 0 || m.Score() > 1 {
			t.Errorf("score %f out of [0,1]", m.Score())
		}
	}
	// Identical direction scores 1.0, orthogonal 0.5.
	if matches[0].Score() < 0.999 {
		t.Errorf("expected score ~1.0 for identical vector, got %f", matches[0].Score())
	}
	if s := matches[2].Score(); s < 0.49 || s > 0.51 {
		t.Errorf("expected score ~0.5 for orthogonal vector, got %f", s)
	}
}

func TestSearchKNN_AuthorFilter(t *testing.T) {
	repo := newTestRepo(t)
	insert(t, repo, "q1", "first", "a", nil, []float32{1, 0, 0, 0})
	insert(t, repo, "q2", "second", "b", nil, []float32{0.9, 0.1, 0, 0})
	insert(t, repo, "q3", "third", "a", nil, []float32{0, 1, 0, 0})

	matches, err := repo.SearchKNN(context.Background(), mustFilter(t, "a", nil), []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected exactly the 2 documents by author a, got %d", len(matches))
	}
	for _, m := range matches {
		if m.Author() != "a" {
			t.Errorf("unexpected author %q", m.Author())
		}
	}
	if matches[0].ID() != "q1" || matches[1].ID() != "q3" {
		t.Errorf("unexpected order: %s, %s", matches[0].ID(), matches[1].ID())
	}
}

func TestSearchKNN_TagConjunction(t *testing.T) {
	repo := newTestRepo(t)
	insert(t, repo, "both", "both tags", "a", []string{"love", "ethics"}, []float32{1, 0, 0, 0})
	insert(t, repo, "one", "one tag", "a", []string{"ethics"}, []float32{1, 0, 0, 0})
	insert(t, repo, "none", "no tags", "a", nil, []float32{1, 0, 0, 0})

	matches, err := repo.SearchKNN(
		context.Background(), mustFilter(t, "", []string{"love", "ethics"}), []float32{1, 0, 0, 0}, 10,
	)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(matches) != 1 || matches[0].ID() != "both" {
		t.Fatalf("expected only the document carrying all tags, got %v", matchIDs(matches))
	}

	single, err := repo.SearchKNN(
		context.Background(), mustFilter(t, "", []string{"ethics"}), []float32{1, 0, 0, 0}, 10,
	)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(single) != 2 {
		t.Fatalf("expected 2 documents tagged ethics, got %v", matchIDs(single))
	}
}

func TestSearchKNN_LimitNeverExceeded(t *testing.T) {
	repo := newTestRepo(t)
	vecs := [][]float32{
		{1, 0, 0, 0}, {0.9, 0.1, 0, 0}, {0.8, 0.2, 0, 0}, {0.7, 0.3, 0, 0}, {0.6, 0.4, 0, 0},
	}
	for i, v := range vecs {
		insert(t, repo, string(rune('a'+i)), "text", "x", nil, v)
	}

	matches, err := repo.SearchKNN(context.Background(), search.Filter{}, []float32{1, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(matches) > 3 {
		t.Fatalf("limit exceeded: got %d", len(matches))
	}
}

func TestSearchKNN_EmptyCollection(t *testing.T) {
	repo := newTestRepo(t)

	matches, err := repo.SearchKNN(context.Background(), search.Filter{}, []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(matches))
	}
}

func TestInsertBatch_DimensionMismatch(t *testing.T) {
	repo := newTestRepo(t)

	q, err := quote.New("q1", "text", "a", nil)
	if err != nil {
		t.Fatalf("quote.New: %v", err)
	}
	q.SetVector([]float32{1, 2}) // dim 2, want 4

	_, insertErr := repo.InsertBatch(context.Background(), []quote.Quote{q})
	if !errors.Is(insertErr, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", insertErr)
	}
}

func TestTeardown(t *testing.T) {
	repo := newTestRepo(t)
	insert(t, repo, "q1", "text", "a", nil, []float32{1, 0, 0, 0})

	if err := repo.Teardown(context.Background()); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	if _, err := repo.Count(context.Background()); !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound after teardown, got %v", err)
	}
}

func TestCount(t *testing.T) {
	repo := newTestRepo(t)
	insert(t, repo, "q1", "text", "a", nil, []float32{1, 0, 0, 0})
	insert(t, repo, "q2", "text", "b", nil, []float32{0, 1, 0, 0})

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}

func matchIDs(matches []search.Match) []string {
	ids := make([]string, len(matches))
	for i := range matches {
		ids[i] = matches[i].ID()
	}
	return ids
}
