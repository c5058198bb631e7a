package retrieve

import "testing"

func TestBM25Index_ExactMatchScoresHigherThanNoMatch(t *testing.T) {
	idx := NewBM25Index(1.5, 0.75,
		[]string{"c1", "c2"},
		[]string{"greenhouse gas emissions scope one two three", "unrelated text about nothing relevant"},
	)
	scores := idx.ScoreAll("greenhouse gas emissions")
	if scores[0] <= scores[1] {
		t.Errorf("expected matching doc to score higher: %v", scores)
	}
}

func TestBM25Index_EmptyQueryScoresZero(t *testing.T) {
	idx := NewBM25Index(1.5, 0.75, []string{"c1"}, []string{"some text"})
	scores := idx.ScoreAll("")
	if scores[0] != 0 {
		t.Errorf("expected zero score for empty query, got %v", scores[0])
	}
}

func TestMinMaxAndNormalizeOne(t *testing.T) {
	min, max := minMax([]float64{1, 3, 2})
	if min != 1 || max != 3 {
		t.Fatalf("minMax = %v, %v", min, max)
	}
	if got := normalizeOne(2, min, max); got != 0.5 {
		t.Errorf("normalizeOne(2) = %v, want 0.5", got)
	}
	if got := normalizeOne(5, 3, 3); got != 0 {
		t.Errorf("normalizeOne with degenerate range = %v, want 0", got)
	}
}

func TestQuery_AlphaOutOfRangeIsFatal(t *testing.T) {
	idx := &Index{bm25: NewBM25Index(1.5, 0.75, []string{"c1"}, []string{"text"}), rows: []chunkRow{{ChunkID: "c1"}}}
	_, err := idx.Query(nil, nil, "q", 1, 1.5)
	if err == nil {
		t.Fatal("expected AlphaError")
	}
	if _, ok := err.(*AlphaError); !ok {
		t.Errorf("expected *AlphaError, got %T", err)
	}
}

func TestQuery_StableTieBreakByChunkIDAscending(t *testing.T) {
	idx := &Index{
		bm25: NewBM25Index(1.5, 0.75, []string{"b", "a"}, []string{"", ""}),
		rows: []chunkRow{{ChunkID: "b"}, {ChunkID: "a"}},
	}
	hits, err := idx.Query(nil, nil, "nomatch", 2, 0.6)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 || hits[0].ChunkID != "a" || hits[1].ChunkID != "b" {
		t.Errorf("expected tie broken by ascending chunk_id, got %+v", hits)
	}
}

func TestQuery_KClippedWhenExceedingN(t *testing.T) {
	idx := &Index{
		bm25: NewBM25Index(1.5, 0.75, []string{"a"}, []string{"text"}),
		rows: []chunkRow{{ChunkID: "a"}},
	}
	hits, err := idx.Query(nil, nil, "text", 10, 0.6)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected k clipped to 1, got %d hits", len(hits))
	}
}
