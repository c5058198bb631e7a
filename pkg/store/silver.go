package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/esgscore/maturity/internal/logger"
)

// Consolidator reads every bronze partition for an (org, year) pair and
// writes the deduplicated silver file (spec §4.1 `consolidate`).
type Consolidator struct {
	BronzeRoot string
	SilverRoot string
}

// Consolidate walks data/bronze/org_id=<O>/year=<Y>/theme=*/*.parquet,
// stable-sorts by chunk_id, drops duplicates by text_sha256 (keep-first),
// and writes the single silver file for the pair. Idempotent: re-running
// over the same bronze partitions yields a byte-identical silver file.
func (c *Consolidator) Consolidate(orgID string, fiscalYear int) (string, error) {
	yearDir := filepath.Join(c.BronzeRoot, fmt.Sprintf("org_id=%s", orgID), fmt.Sprintf("year=%d", fiscalYear))
	themeDirs, err := os.ReadDir(yearDir)
	if err != nil {
		return "", fmt.Errorf("consolidate: read bronze year dir: %w", err)
	}

	var all []bronzeRecord
	for _, td := range themeDirs {
		if !td.IsDir() {
			continue
		}
		themeDir := filepath.Join(yearDir, td.Name())
		entries, err := os.ReadDir(themeDir)
		if err != nil {
			return "", fmt.Errorf("consolidate: read theme dir %s: %w", themeDir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
				continue
			}
			rows, err := readBronzeParquet(filepath.Join(themeDir, e.Name()))
			if err != nil {
				return "", fmt.Errorf("consolidate: read %s: %w", e.Name(), err)
			}
			all = append(all, rows...)
		}
	}

	if len(all) == 0 {
		return "", fmt.Errorf("consolidate: no bronze chunks found for org=%s year=%d", orgID, fiscalYear)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].ChunkID < all[j].ChunkID })

	seen := make(map[string]struct{}, len(all))
	silver := make([]SilverRecord, 0, len(all))
	for _, r := range all {
		if _, dup := seen[r.TextSHA256]; dup {
			continue
		}
		seen[r.TextSHA256] = struct{}{}
		silver = append(silver, SilverRecord{
			ChunkID:       r.ChunkID,
			PageNo:        r.PageNo,
			TextSHA256:    r.TextSHA256,
			TextCanonical: CanonicalizeForHashing(r.Text),
			CharStart:     r.CharStart,
			CharEnd:       r.CharEnd,
			SourceDocID:   r.DocID,
			Text:          r.Text,
		})
	}

	orgDir := filepath.Join(c.SilverRoot, fmt.Sprintf("org_id=%s", orgID), fmt.Sprintf("year=%d", fiscalYear))
	if err := os.MkdirAll(orgDir, 0o755); err != nil {
		return "", fmt.Errorf("consolidate: mkdir silver dir: %w", err)
	}
	silverPath := filepath.Join(orgDir, fmt.Sprintf("%s_%d_chunks.parquet", orgID, fiscalYear))
	if err := writeSilverParquet(silverPath, silver); err != nil {
		return "", fmt.Errorf("consolidate: write silver: %w", err)
	}

	logger.With(logger.Fields{"org_id": orgID, "year": fiscalYear, "raw": len(all), "deduped": len(silver)}).Info("silver consolidation complete")
	return silverPath, nil
}

// CanonicalizeForHashing applies the spec's `strip + lowercase +
// whitespace-normalize` rule used only for hashing and BM25 tokenization;
// the original Text field is preserved verbatim for quotation (I1).
func CanonicalizeForHashing(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func readBronzeParquet(path string) ([]bronzeRecord, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(bronzeRecord), 4)
	if err != nil {
		return nil, err
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]bronzeRecord, num)
	if err := pr.Read(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func writeSilverParquet(path string, rows []SilverRecord) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(SilverRecord), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows {
		if err := pw.Write(r); err != nil {
			return err
		}
	}
	return pw.WriteStop()
}

// LoadSilver reads a consolidated silver file back into memory, ordered as
// stored (stable chunk_id order from consolidation).
func LoadSilver(path string) ([]SilverRecord, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("load silver: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(SilverRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("load silver: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	if num == 0 {
		return nil, fmt.Errorf("load silver: empty silver file %s", path)
	}
	rows := make([]SilverRecord, num)
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("load silver: %w", err)
	}
	return rows, nil
}
