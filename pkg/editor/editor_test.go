package editor

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/esgscore/maturity/pkg/cache"
	"github.com/esgscore/maturity/pkg/determinism"
	"github.com/esgscore/maturity/pkg/rubric"
)

type countingProvider struct {
	model string
	calls int
}

func (p *countingProvider) ModelID() string { return p.model }

func (p *countingProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	p.calls++
	return "generated: " + prompt, nil
}

func openTestCache(t *testing.T, phase cache.Phase) *cache.Cache {
	t.Helper()
	clock, err := determinism.NewDeterministicClock("2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("NewDeterministicClock: %v", err)
	}
	c, err := cache.Open(cache.Options{Root: filepath.Join(t.TempDir(), "cache"), Phase: phase, Clock: clock})
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleInput() Input {
	zero := 0
	return Input{
		DocID:      "doc-1",
		Company:    "Acme Corp",
		FiscalYear: 2025,
		Scores: []rubric.ThemeScore{
			{Theme: "GHG", Stage: &zero, Confidence: 0.5, Descriptor: "no disclosure"},
		},
		QuotesByTheme: map[string][]Quote{
			"GHG": {{PageNo: 3, Text: "no emissions data disclosed"}},
		},
	}
}

func TestEditor_Generate_FetchProducesNarrativeWithMarshalableOutput(t *testing.T) {
	provider := &countingProvider{model: "test-model"}
	fetchCache := openTestCache(t, cache.PhaseFetch)
	ed := &Editor{Cache: fetchCache, Provider: provider}

	n, err := ed.Generate(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("Generate (fetch): %v", err)
	}
	if provider.calls == 0 {
		t.Fatalf("expected fetch mode to call the provider at least once")
	}
	if _, err := n.MarshalCanonical(); err != nil {
		t.Fatalf("MarshalCanonical: %v", err)
	}
}

func TestEditor_Generate_ReplayHitsWithoutCallingProvider(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	clock, err := determinism.NewDeterministicClock("2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("NewDeterministicClock: %v", err)
	}

	fetchCache, err := cache.Open(cache.Options{Root: root, Phase: cache.PhaseFetch, Clock: clock})
	if err != nil {
		t.Fatalf("cache.Open fetch: %v", err)
	}
	fetchProvider := &countingProvider{model: "test-model"}
	in := sampleInput()
	if _, err := (&Editor{Cache: fetchCache, Provider: fetchProvider}).Generate(context.Background(), in); err != nil {
		t.Fatalf("Generate (fetch): %v", err)
	}
	fetchCache.Close()

	replayCache, err := cache.Open(cache.Options{Root: root, Phase: cache.PhaseReplay, Clock: clock})
	if err != nil {
		t.Fatalf("cache.Open replay: %v", err)
	}
	defer replayCache.Close()
	replayProvider := &countingProvider{model: "test-model"}
	n, err := (&Editor{Cache: replayCache, Provider: replayProvider}).Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("Generate (replay): %v", err)
	}
	if replayProvider.calls != 0 {
		t.Fatalf("expected replay mode to never call the provider, got %d calls", replayProvider.calls)
	}
	if !strings.Contains(n.ExecutiveSummary, "generated:") {
		t.Fatalf("expected replayed summary to be the cached fetch output, got %q", n.ExecutiveSummary)
	}
}

func TestEditor_Generate_ReplayMissFailsClosed(t *testing.T) {
	replayCache := openTestCache(t, cache.PhaseReplay)
	provider := &countingProvider{model: "never-fetched"}
	_, err := (&Editor{Cache: replayCache, Provider: provider}).Generate(context.Background(), sampleInput())
	if err == nil {
		t.Fatalf("expected replay miss to fail closed")
	}
	var editErr *EditorError
	if !asEditorError(err, &editErr) {
		t.Fatalf("expected *EditorError, got %T: %v", err, err)
	}
}

func asEditorError(err error, target **EditorError) bool {
	e, ok := err.(*EditorError)
	if ok {
		*target = e
	}
	return ok
}

func TestThemePrompt_StatesLimitationBelowConfidenceThreshold(t *testing.T) {
	in := sampleInput()
	p := themePrompt(in, in.Scores[0])
	if !strings.Contains(p, "state that limitation explicitly") {
		t.Fatalf("expected low-confidence theme prompt to instruct stating the limitation, got: %s", p)
	}
}

func TestThemePrompt_OmitsLimitationInstructionAboveThreshold(t *testing.T) {
	in := sampleInput()
	high := in.Scores[0]
	high.Confidence = 0.85
	p := themePrompt(in, high)
	if strings.Contains(p, "state that limitation explicitly") {
		t.Fatalf("did not expect limitation instruction for a high-confidence theme")
	}
}

func TestStageLine_RendersNullStageExplicitly(t *testing.T) {
	sc := rubric.ThemeScore{Theme: "RD", Stage: nil, Confidence: 0}
	line := stageLine(sc)
	if !strings.Contains(line, "null") {
		t.Fatalf("expected null stage to render explicitly, got %q", line)
	}
}
