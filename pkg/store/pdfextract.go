package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/h2non/filetype"
	"github.com/ledongthuc/pdf"

	"github.com/esgscore/maturity/internal/logger"
)

// PageText is one extracted, not-yet-cleaned page of a PDF.
type PageText struct {
	PageNo int
	Text   string
	Err    error // set when the page was unreadable and skipped
}

// IngestionError is the taxonomy's fatal-on-missing-or-empty-input class
// (spec §7 "IngestionError").
type IngestionError struct {
	DocID string
	Msg   string
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion error: doc_id=%s: %s", e.DocID, e.Msg)
}

// extractPages validates the magic bytes and walks every page of a PDF,
// returning its text per page. Unreadable pages are recorded with an error
// and skipped, not silently dropped (spec §4.1 "Failure semantics").
func extractPages(docID string, raw []byte) ([]PageText, string, error) {
	if len(raw) == 0 {
		return nil, "", &IngestionError{DocID: docID, Msg: "empty pdf bytes"}
	}
	kind, err := filetype.Match(raw)
	if err != nil || kind.Extension != "pdf" {
		return nil, "", &IngestionError{DocID: docID, Msg: "not a pdf by magic bytes"}
	}

	sum := sha256.Sum256(raw)
	sourceSHA := hex.EncodeToString(sum[:])

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, sourceSHA, &IngestionError{DocID: docID, Msg: "unreadable pdf: " + err.Error()}
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, sourceSHA, &IngestionError{DocID: docID, Msg: "pdf has zero pages"}
	}

	pages := make([]PageText, 0, numPages)
	fontsCache := map[string]*pdf.Font{}
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, PageText{PageNo: i, Err: fmt.Errorf("null page")})
			logger.With(logger.Fields{"doc_id": docID, "page_no": i}).Warn("skipped null pdf page")
			continue
		}
		text, err := page.GetPlainText(fontsCache)
		if err != nil {
			pages = append(pages, PageText{PageNo: i, Err: err})
			logger.With(logger.Fields{"doc_id": docID, "page_no": i, "error": err.Error()}).Warn("skipped unreadable pdf page")
			continue
		}
		pages = append(pages, PageText{PageNo: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, sourceSHA, &IngestionError{DocID: docID, Msg: "no pages produced readable text"}
	}
	return pages, sourceSHA, nil
}
