package retrieve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/wizenheimer/comet"

	"github.com/esgscore/maturity/internal/logger"
	"github.com/esgscore/maturity/pkg/determinism"
	"github.com/esgscore/maturity/pkg/store"
)

// chunkRow is the in-memory row kept alongside the on-disk chunks.parquet
// sidecar: identity plus both the canonical (for BM25) and original (for
// quoting) text.
type chunkRow struct {
	ChunkID       string
	PageNo        int
	Text          string // original, for quoting
	TextCanonical string // canonical, for BM25
}

// Index is one document's built hybrid index: a BM25-Okapi lexical index
// plus a comet FlatIndex(Cosine) dense index over cached embeddings.
type Index struct {
	docID   string
	dir     string
	rows    []chunkRow
	bm25    *BM25Index
	flat    *comet.FlatIndex
	meta    IndexMeta
	hasVecs bool
}

// Len reports how many chunks the index covers.
func (idx *Index) Len() int { return len(idx.rows) }

// BuildOptions configures build_index (spec §4.3).
type BuildOptions struct {
	Root      string // data/index root
	DocID     string
	Silver    []store.SilverRecord
	Embedder  *Embedder
	Clock     determinism.Clock
	Seed      int64
	BM25K1    float64
	BM25B     float64
}

// BuildIndex loads silver chunks for a document, builds the lexical index,
// embeds every chunk through C2 in order, L2-normalizes, and persists
// chunks.parquet / embeddings.bin / meta.json (spec §4.3 `build_index`).
func BuildIndex(ctx context.Context, opts BuildOptions) (*Index, error) {
	if len(opts.Silver) == 0 {
		return nil, &IndexError{DocID: opts.DocID, Msg: "empty silver: cannot build index"}
	}

	rows := make([]chunkRow, 0, len(opts.Silver))
	chunkIDs := make([]string, 0, len(opts.Silver))
	canon := make([]string, 0, len(opts.Silver))
	hasher := sha256.New()
	for _, r := range opts.Silver {
		rows = append(rows, chunkRow{
			ChunkID: r.ChunkID, PageNo: int(r.PageNo), Text: r.Text, TextCanonical: r.TextCanonical,
		})
		chunkIDs = append(chunkIDs, r.ChunkID)
		canon = append(canon, r.TextCanonical)
		hasher.Write([]byte(r.TextSHA256))
	}
	textSHAAll := hex.EncodeToString(hasher.Sum(nil))

	idx := &Index{
		docID: opts.DocID,
		dir:   filepath.Join(opts.Root, opts.DocID),
		rows:  rows,
		bm25:  NewBM25Index(opts.BM25K1, opts.BM25B, chunkIDs, canon),
	}

	if err := os.MkdirAll(idx.dir, 0o755); err != nil {
		return nil, &IndexError{DocID: opts.DocID, Msg: "mkdir index dir: " + err.Error()}
	}

	var vectors [][]float32
	if opts.Embedder != nil {
		texts := make([]string, len(rows))
		for i, r := range rows {
			texts[i] = r.Text
		}
		vecs, err := opts.Embedder.Embed(ctx, texts)
		if err != nil {
			return nil, &IndexError{DocID: opts.DocID, Msg: "embed chunks: " + err.Error()}
		}
		vectors = vecs
		idx.hasVecs = true
		idx.meta.Dim = opts.Embedder.Dim
		if len(vectors) > 0 {
			idx.meta.Dim = len(vectors[0])
		}
		idx.meta.ModelID = opts.Embedder.ModelID
		if err := idx.buildFlat(vectors); err != nil {
			return nil, &IndexError{DocID: opts.DocID, Msg: "build dense index: " + err.Error()}
		}
	}

	idx.meta.Seed = opts.Seed
	idx.meta.N = len(rows)
	idx.meta.TextSHAAll = textSHAAll
	if opts.Clock != nil {
		idx.meta.DeterministicTimestamp = opts.Clock.Now()
	}

	if err := idx.persist(vectors); err != nil {
		return nil, &IndexError{DocID: opts.DocID, Msg: "persist index: " + err.Error()}
	}

	logger.With(logger.Fields{"doc_id": opts.DocID, "chunks": len(rows), "has_vecs": idx.hasVecs}).Info("built hybrid index")
	return idx, nil
}

func (idx *Index) buildFlat(vectors [][]float32) error {
	flat, err := comet.NewFlatIndex(idx.meta.Dim, comet.Cosine)
	if err != nil {
		return err
	}
	for i, vec := range vectors {
		node := comet.NewVectorNodeWithID(uint32(i), vec)
		if err := flat.Add(*node); err != nil {
			return err
		}
	}
	idx.flat = flat
	return nil
}

func (idx *Index) persist(vectors [][]float32) error {
	chunksPath := filepath.Join(idx.dir, "chunks.parquet")
	rows := make([]store.SilverRecord, len(idx.rows))
	for i, r := range idx.rows {
		rows[i] = store.SilverRecord{ChunkID: r.ChunkID, PageNo: int32(r.PageNo), Text: r.Text, TextCanonical: r.TextCanonical}
	}
	if err := writeChunksParquet(chunksPath, rows); err != nil {
		return err
	}
	if len(vectors) > 0 {
		if err := writeEmbeddingsBin(filepath.Join(idx.dir, "embeddings.bin"), vectors); err != nil {
			return err
		}
	}
	metaBytes, err := json.MarshalIndent(idx.meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(idx.dir, "meta.json"), metaBytes, 0o644)
}

// LoadIndex reloads a previously built index from disk (used by the
// orchestrator's "load existing index" path and by offline replay).
func LoadIndex(root, docID string, bm25K1, bm25B float64) (*Index, error) {
	dir := filepath.Join(root, docID)
	metaBytes, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return nil, &IndexError{DocID: docID, Msg: "missing index meta: " + err.Error()}
	}
	var meta IndexMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, &IndexError{DocID: docID, Msg: "corrupt index meta: " + err.Error()}
	}

	rows, err := readChunksParquet(filepath.Join(dir, "chunks.parquet"))
	if err != nil {
		return nil, &IndexError{DocID: docID, Msg: "read chunks.parquet: " + err.Error()}
	}
	if len(rows) != meta.N {
		return nil, &IndexError{DocID: docID, Msg: "chunk count mismatch vs meta.json"}
	}

	chunkIDs := make([]string, len(rows))
	canon := make([]string, len(rows))
	crows := make([]chunkRow, len(rows))
	for i, r := range rows {
		chunkIDs[i] = r.ChunkID
		canon[i] = r.TextCanonical
		crows[i] = chunkRow{ChunkID: r.ChunkID, PageNo: int(r.PageNo), Text: r.Text, TextCanonical: r.TextCanonical}
	}

	idx := &Index{
		docID: docID,
		dir:   dir,
		rows:  crows,
		bm25:  NewBM25Index(bm25K1, bm25B, chunkIDs, canon),
		meta:  meta,
	}

	binPath := filepath.Join(dir, "embeddings.bin")
	if info, err := os.Stat(binPath); err == nil && info.Size() > 0 && meta.Dim > 0 {
		vectors, err := readEmbeddingsBin(binPath, meta.N, meta.Dim)
		if err != nil {
			return nil, &IndexError{DocID: docID, Msg: "read embeddings.bin: " + err.Error()}
		}
		if err := idx.buildFlat(vectors); err != nil {
			return nil, &IndexError{DocID: docID, Msg: "rebuild dense index: " + err.Error()}
		}
		idx.hasVecs = true
	}
	return idx, nil
}

// Query runs the spec §4.3 `query` operation: BM25 + dense cosine,
// independent min-max normalization, convex fusion, stable tie-break.
func (idx *Index) Query(ctx context.Context, embedder *Embedder, q string, k int, alpha float64) ([]Hit, error) {
	if alpha < 0 || alpha > 1 {
		return nil, &AlphaError{Alpha: alpha}
	}
	if k > len(idx.rows) {
		logger.With(logger.Fields{"doc_id": idx.docID, "k": k, "n": len(idx.rows)}).Warn("k exceeds index size, clipping")
		k = len(idx.rows)
	}

	bm25Raw := idx.bm25.ScoreAll(q)

	cosRaw := make([]float64, len(idx.rows))
	if idx.hasVecs && embedder != nil {
		qvecs, err := embedder.Embed(ctx, []string{q})
		if err != nil {
			return nil, err
		}
		results, err := idx.flat.NewSearch().WithVector(qvecs[0]).WithK(len(idx.rows)).Execute()
		if err != nil {
			return nil, &IndexError{DocID: idx.docID, Msg: "dense search: " + err.Error()}
		}
		for _, r := range results {
			id := int(r.ID)
			if id < 0 || id >= len(cosRaw) {
				continue
			}
			cosRaw[id] = float64(r.Score)
		}
	}

	minBM, maxBM := minMax(bm25Raw)
	minCos, maxCos := minMax(cosRaw)

	hits := make([]Hit, len(idx.rows))
	for i, r := range idx.rows {
		bmNorm := normalizeOne(bm25Raw[i], minBM, maxBM)
		cosNorm := normalizeOne(cosRaw[i], minCos, maxCos)
		score := alpha*bmNorm + (1-alpha)*cosNorm
		hits[i] = Hit{
			ChunkID: r.ChunkID, PageNo: r.PageNo, Text: r.Text,
			BM25Raw: bm25Raw[i], CosineRaw: cosRaw[i],
			BM25Norm: bmNorm, CosineNorm: cosNorm, Score: score,
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ChunkID < hits[j].ChunkID
		}
		return hits[i].Score > hits[j].Score
	})

	if k <= 0 {
		k = len(hits)
	}
	return hits[:k], nil
}

func minMax(v []float64) (min, max float64) {
	if len(v) == 0 {
		return 0, 0
	}
	min, max = v[0], v[0]
	for _, x := range v[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}

func normalizeOne(v, min, max float64) float64 {
	if max <= min {
		return 0
	}
	return (v - min) / (max - min)
}
