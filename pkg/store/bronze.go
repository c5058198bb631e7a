package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/esgscore/maturity/internal/logger"
)

// bronzeRecord is the raw, theme-partitioned row written on ingestion.
// Unlike SilverRecord it carries per-chunk cleaning status and is never
// deduplicated.
type bronzeRecord struct {
	ChunkID    string `parquet:"name=chunk_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	DocID      string `parquet:"name=doc_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	PageNo     int32  `parquet:"name=page_no, type=INT32"`
	CharStart  int32  `parquet:"name=char_start, type=INT32"`
	CharEnd    int32  `parquet:"name=char_end, type=INT32"`
	Text       string `parquet:"name=text, type=BYTE_ARRAY, convertedtype=UTF8"`
	TextSHA256 string `parquet:"name=text_sha256, type=BYTE_ARRAY, convertedtype=UTF8"`
	ThemeHint  string `parquet:"name=theme_hint, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status     string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Ingester converts one PDF into bronze partitions.
type Ingester struct {
	Root     string // data/bronze root
	MinChars int    // minimum paragraph chunk size, default 100
}

// Ingest extracts chunks from pdfBytes, writes them as a bronze parquet
// partition plus manifest, and returns the manifest (spec §4.1 `ingest`).
// theme classifies the partition when a hint is available; "" is the
// catch-all "unthemed" partition.
func (ing *Ingester) Ingest(docID, orgID string, fiscalYear int, theme string, pdfBytes []byte) (*IngestionManifest, error) {
	pages, sourceSHA, err := extractPages(docID, pdfBytes)
	if err != nil {
		return nil, err
	}

	minChars := ing.MinChars
	if minChars <= 0 {
		minChars = 100
	}

	manifest := &IngestionManifest{
		DocID:        docID,
		OrgID:        orgID,
		FiscalYear:   fiscalYear,
		SourceSHA256: sourceSHA,
	}

	records := make([]bronzeRecord, 0, len(pages)*4)
	firstPage, lastPage := 0, 0
	for _, pg := range pages {
		if pg.Err != nil {
			manifest.Warnings = append(manifest.Warnings, fmt.Sprintf("page %d skipped: %v", pg.PageNo, pg.Err))
			continue
		}
		cleaned, badFrac := cleanText(pg.Text)
		if cleaned == "" {
			continue
		}
		spans := splitParagraphs(cleaned, minChars)
		for idx, span := range spans {
			status := CleanOK
			if badFrac > suspectThreshold {
				status = CleanSuspect
			}
			sum := sha256.Sum256([]byte(span.text))
			chunkID := ChunkID(docID, pg.PageNo, idx)
			records = append(records, bronzeRecord{
				ChunkID:    chunkID,
				DocID:      docID,
				PageNo:     int32(pg.PageNo),
				CharStart:  int32(span.start),
				CharEnd:    int32(span.end),
				Text:       span.text,
				TextSHA256: hex.EncodeToString(sum[:]),
				ThemeHint:  theme,
				Status:     string(status),
			})
			manifest.Chunks = append(manifest.Chunks, ManifestChunk{
				ChunkID: chunkID, PageNo: pg.PageNo, TextSHA256: hex.EncodeToString(sum[:]), Status: status,
			})
			if firstPage == 0 || pg.PageNo < firstPage {
				firstPage = pg.PageNo
			}
			if pg.PageNo > lastPage {
				lastPage = pg.PageNo
			}
		}
	}

	if len(records) == 0 {
		return nil, &IngestionError{DocID: docID, Msg: "no chunks passed cleaning"}
	}

	manifest.ChunkCount = len(records)
	manifest.FirstPage = firstPage
	manifest.LastPage = lastPage

	partDir := ing.partitionDir(orgID, fiscalYear, theme)
	if err := os.MkdirAll(partDir, 0o755); err != nil {
		return nil, &IngestionError{DocID: docID, Msg: "mkdir bronze partition: " + err.Error()}
	}
	parquetPath := filepath.Join(partDir, docID+".parquet")
	if err := writeBronzeParquet(parquetPath, records); err != nil {
		return nil, &IngestionError{DocID: docID, Msg: "write bronze parquet: " + err.Error()}
	}

	manifestPath := filepath.Join(partDir, docID+".manifest.json")
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, &IngestionError{DocID: docID, Msg: "marshal manifest: " + err.Error()}
	}
	if err := os.WriteFile(manifestPath, manifestBytes, 0o644); err != nil {
		return nil, &IngestionError{DocID: docID, Msg: "write manifest: " + err.Error()}
	}

	logger.With(logger.Fields{"doc_id": docID, "chunks": len(records), "warnings": len(manifest.Warnings)}).Info("bronze ingestion complete")
	return manifest, nil
}

func (ing *Ingester) partitionDir(orgID string, fiscalYear int, theme string) string {
	if theme == "" {
		theme = "unthemed"
	}
	return filepath.Join(ing.Root, fmt.Sprintf("org_id=%s", orgID), fmt.Sprintf("year=%d", fiscalYear), fmt.Sprintf("theme=%s", theme))
}

func writeBronzeParquet(path string, records []bronzeRecord) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(bronzeRecord), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range records {
		if err := pw.Write(r); err != nil {
			return err
		}
	}
	return pw.WriteStop()
}
