package store

import "testing"

func TestChunkID(t *testing.T) {
	got := ChunkID("doc1", 3, 2)
	want := "doc1_p3_c2"
	if got != want {
		t.Errorf("ChunkID = %s, want %s", got, want)
	}
}

func TestCleanText_RemovesControlChars(t *testing.T) {
	raw := "Hello\x00World\x01\n\nSecond  paragraph"
	cleaned, frac := cleanText(raw)
	if cleaned != "HelloWorld\n\nSecond paragraph" {
		t.Errorf("cleanText = %q", cleaned)
	}
	if frac <= 0 {
		t.Errorf("expected nonzero non-printable fraction, got %f", frac)
	}
}

func TestCleanText_CollapsesBlankLineRuns(t *testing.T) {
	cleaned, _ := cleanText("a\n\n\n\n\nb")
	if cleaned != "a\n\nb" {
		t.Errorf("cleanText = %q, want %q", cleaned, "a\n\nb")
	}
}

func TestCleanText_PreservesNewlines(t *testing.T) {
	cleaned, _ := cleanText("line one\nline two")
	if cleaned != "line one\nline two" {
		t.Errorf("cleanText collapsed newline: %q", cleaned)
	}
}

func TestSuspectThreshold(t *testing.T) {
	// 20 of 100 runes control => 0.20 > 0.15 threshold.
	var raw string
	for i := 0; i < 80; i++ {
		raw += "a"
	}
	for i := 0; i < 20; i++ {
		raw += "\x01"
	}
	_, frac := cleanText(raw)
	if frac <= suspectThreshold {
		t.Errorf("expected fraction above suspect threshold, got %f", frac)
	}
}

func TestSplitParagraphs_MergesShortTrailingFragment(t *testing.T) {
	text := longParagraph(150) + "\n\n" + "short tail"
	spans := splitParagraphs(text, 100)
	if len(spans) != 1 {
		t.Fatalf("expected trailing short fragment merged into one span, got %d spans", len(spans))
	}
}

func TestSplitParagraphs_SplitsOnBlankLines(t *testing.T) {
	text := longParagraph(120) + "\n\n" + longParagraph(120)
	spans := splitParagraphs(text, 100)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
}

func TestCanonicalizeForHashing(t *testing.T) {
	got := CanonicalizeForHashing("  Hello   World\n\n ")
	if got != "hello world" {
		t.Errorf("CanonicalizeForHashing = %q, want %q", got, "hello world")
	}
}

func longParagraph(n int) string {
	s := ""
	for len(s) < n {
		s += "word "
	}
	return s
}
