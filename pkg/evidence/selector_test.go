package evidence

import (
	"strings"
	"testing"

	"github.com/esgscore/maturity/pkg/retrieve"
)

func TestSelect_StopsAtCountAndPageTargets(t *testing.T) {
	topK := []retrieve.Hit{
		{ChunkID: "d1_p1_c0", PageNo: 1, Text: "Our scope 1 greenhouse gas emissions decreased this year."},
		{ChunkID: "d1_p2_c0", PageNo: 2, Text: "Scope 2 ghg emissions reporting follows GRI standards."},
		{ChunkID: "d1_p3_c0", PageNo: 3, Text: "Unrelated operational text about logistics."},
		{ChunkID: "d1_p4_c0", PageNo: 4, Text: "More scope 3 greenhouse gas emissions disclosure."},
		{ChunkID: "d1_p5_c0", PageNo: 5, Text: "Final unrelated filler sentence here."},
	}
	pool := Select("d1", ThemeGHG, topK, 2)
	if len(pool.Records) != 4 {
		t.Errorf("expected selection to stop at 4 records, got %d", len(pool.Records))
	}
	if len(pool.PagesSeen) < 2 {
		t.Errorf("expected at least 2 distinct pages, got %v", pool.PagesSeen)
	}
	if pool.Insufficient {
		t.Errorf("expected sufficient evidence, got insufficient pool: %+v", pool)
	}
}

func TestSelect_InsufficientWhenSinglePage(t *testing.T) {
	topK := []retrieve.Hit{
		{ChunkID: "d1_p1_c0", PageNo: 1, Text: "Scope 1 greenhouse gas emissions text one."},
		{ChunkID: "d1_p1_c1", PageNo: 1, Text: "Scope 2 greenhouse gas emissions text two."},
	}
	pool := Select("d1", ThemeGHG, topK, 2)
	if !pool.Insufficient {
		t.Error("expected insufficient pool when only one distinct page is available")
	}
}

func TestSelect_QuoteIsLiteralSubstring(t *testing.T) {
	topK := []retrieve.Hit{
		{ChunkID: "d1_p1_c0", PageNo: 1, Text: "Intro sentence.   Our scope 1 greenhouse gas emissions fell sharply this reporting year.   Trailing sentence."},
		{ChunkID: "d1_p2_c0", PageNo: 2, Text: "Scope 2 ghg emissions and scope 3 greenhouse gas emissions both declined."},
	}
	pool := Select("d1", ThemeGHG, topK, 2)
	for _, r := range pool.Records {
		var sourceText string
		for _, h := range topK {
			if h.ChunkID == r.ChunkID {
				sourceText = h.Text
			}
		}
		if !strings.Contains(sourceText, r.Quote) {
			t.Errorf("quote %q is not a literal substring of source chunk text %q", r.Quote, sourceText)
		}
	}
}

func TestCapWords_TruncatesAtWordBoundaryPreservingBytes(t *testing.T) {
	words := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		words = append(words, "word")
	}
	long := strings.Join(words, " ")
	cut := capWords(long, 30)
	if !strings.HasPrefix(long, cut) {
		t.Errorf("capWords result is not a prefix of the source string")
	}
	if got := len(strings.Fields(cut)); got != 30 {
		t.Errorf("capWords produced %d words, want 30", got)
	}
}

func TestDetectedFrameworks_RequiresInTextMention(t *testing.T) {
	found := DetectedFrameworks("We report in line with the TCFD recommendations.")
	if len(found) != 1 || found[0] != "TCFD" {
		t.Errorf("DetectedFrameworks = %v, want [TCFD]", found)
	}
	if got := DetectedFrameworks("No framework mentioned here."); len(got) != 0 {
		t.Errorf("expected no frameworks detected, got %v", got)
	}
}
