package editor

import (
	"context"

	"github.com/esgscore/maturity/pkg/cache"
)

// Editor composes prompts from scorer output and evidence quotes, and
// resolves each one through C2's fetch/replay cache before handing it to
// a Provider (spec §4.7 "call the LLM via C2").
type Editor struct {
	Cache    *cache.Cache
	Provider Provider
}

// editParams is the cache key's params map. No other field of Provider
// config belongs here — a model or temperature change must mint a new
// cache key, never silently alias an old one.
func (e *Editor) editParams() map[string]any {
	return map[string]any{
		"temperature": 0,
		"system":      systemPrompt,
	}
}

func (e *Editor) complete(ctx context.Context, prompt string) (string, error) {
	modelID := e.Provider.ModelID()
	out, err := e.Cache.GetOrCall(ctx, "edit", modelID, e.editParams(), prompt, func(ctx context.Context) ([]byte, error) {
		text, err := e.Provider.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Generate produces the single narrative artifact for a doc (spec §4.7
// "Outputs: a single narrative artifact per doc"). The summary and each
// theme's analysis are cached and replayed as separate calls; a cache miss
// on any one of them in replay mode fails the whole Generate call with an
// EditorError and no partial narrative is returned.
func (e *Editor) Generate(ctx context.Context, in Input) (*Narrative, error) {
	summary, err := e.complete(ctx, summaryPrompt(in))
	if err != nil {
		return nil, &EditorError{DocID: in.DocID, Msg: err.Error()}
	}

	themes := make([]ThemeNarrative, 0, len(in.Scores))
	for _, sc := range in.Scores {
		text, err := e.complete(ctx, themePrompt(in, sc))
		if err != nil {
			return nil, &EditorError{DocID: in.DocID, Msg: err.Error()}
		}
		limitation := ""
		if sc.Confidence < confidenceLimitationThreshold {
			limitation = "confidence below 0.7: treat this theme's stage as provisional"
		}
		themes = append(themes, ThemeNarrative{Theme: sc.Theme, Text: text, Limitation: limitation})
	}

	return &Narrative{
		DocID:            in.DocID,
		ExecutiveSummary: summary,
		Themes:           themes,
		ModelID:          e.Provider.ModelID(),
	}, nil
}

// MarshalCanonical renders the narrative as canonical JSON for the
// on-disk artifact (spec §6 canonical-json rule applies to every
// artifact, not only the Output Contract).
func (n *Narrative) MarshalCanonical() ([]byte, error) {
	return cache.CanonicalJSON(n)
}
