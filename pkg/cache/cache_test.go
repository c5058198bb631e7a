package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/esgscore/maturity/pkg/determinism"
)

func newTestCache(t *testing.T, phase Phase) *Cache {
	t.Helper()
	clock, err := determinism.NewDeterministicClock("2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("NewDeterministicClock: %v", err)
	}
	c, err := Open(Options{Root: t.TempDir(), Phase: phase, Clock: clock, FetchRatePerSec: 1000})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetOrCall_FetchThenReplayHit(t *testing.T) {
	dir := t.TempDir()
	clock, _ := determinism.NewDeterministicClock("2026-01-01T00:00:00Z")

	fetchCache, err := Open(Options{Root: dir, Phase: PhaseFetch, Clock: clock, FetchRatePerSec: 1000})
	if err != nil {
		t.Fatalf("Open fetch: %v", err)
	}
	calls := 0
	fetch := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte(`{"embedding":[0.1,0.2]}`), nil
	}
	out1, err := fetchCache.GetOrCall(context.Background(), "embed", "text-embed-3", map[string]any{"dims": 256}, "hello world", fetch)
	if err != nil {
		t.Fatalf("GetOrCall fetch: %v", err)
	}
	fetchCache.Close()

	replayCache, err := Open(Options{Root: dir, Phase: PhaseReplay, Clock: clock})
	if err != nil {
		t.Fatalf("Open replay: %v", err)
	}
	defer replayCache.Close()
	out2, err := replayCache.GetOrCall(context.Background(), "embed", "text-embed-3", map[string]any{"dims": 256}, "hello world", fetch)
	if err != nil {
		t.Fatalf("GetOrCall replay: %v", err)
	}
	if string(out1) != string(out2) {
		t.Errorf("replay output mismatch: %s vs %s", out1, out2)
	}
	if calls != 1 {
		t.Errorf("expected fetch invoked exactly once, got %d", calls)
	}
}

func TestGetOrCall_ReplayMissFailsClosed(t *testing.T) {
	c := newTestCache(t, PhaseReplay)
	fetch := func(ctx context.Context) ([]byte, error) {
		t.Fatal("fetch must not be called in replay mode")
		return nil, nil
	}
	_, err := c.GetOrCall(context.Background(), "embed", "text-embed-3", map[string]any{}, "unknown input", fetch)
	if err == nil {
		t.Fatal("expected CacheMissError, got nil")
	}
	if _, ok := err.(*CacheMissError); !ok {
		t.Errorf("expected *CacheMissError, got %T: %v", err, err)
	}
}

func TestGetOrCall_ParamOrderDoesNotAffectKey(t *testing.T) {
	k1, err := Key("m", map[string]any{"a": 1, "b": 2}, "x")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	k2, err := Key("m", map[string]any{"b": 2, "a": 1}, "x")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if k1 != k2 {
		t.Errorf("param order changed the cache key: %s != %s", k1, k2)
	}
}

func TestGetOrCall_WhitespaceTrimmedBeforeKeying(t *testing.T) {
	k1, err := Key("m", map[string]any{}, "hello")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	k2, err := Key("m", map[string]any{}, "  hello  ")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if k1 != k2 {
		t.Errorf("leading/trailing whitespace changed the cache key: %s != %s", k1, k2)
	}
}

func TestLedger_CountOnline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l, err := OpenLedger(path)
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	defer l.Close()
	entries := []LedgerEntry{
		{Phase: "fetch", Key: "a", Online: true},
		{Phase: "fetch", Key: "b", Online: false, Hit: true},
		{Phase: "replay", Key: "c", Online: false, Hit: true},
	}
	for _, e := range entries {
		if err := l.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	n, err := l.CountOnline()
	if err != nil {
		t.Fatalf("CountOnline: %v", err)
	}
	if n != 1 {
		t.Errorf("CountOnline = %d, want 1", n)
	}
}

func TestCanonicalJSON_SortsKeysAndIsStable(t *testing.T) {
	a, err := CanonicalJSON(map[string]any{"z": 1, "a": 2, "m": map[string]any{"y": 1, "x": 2}})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	b, err := CanonicalJSON(map[string]any{"a": 2, "m": map[string]any{"x": 2, "y": 1}, "z": 1})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("canonical json not order-independent: %s vs %s", a, b)
	}
	want := `{"a":2,"m":{"x":2,"y":1},"z":1}`
	if string(a) != want {
		t.Errorf("CanonicalJSON = %s, want %s", a, want)
	}
}

func TestRoundParam(t *testing.T) {
	if got := RoundParam(0.123456, 2); got != 0.12 {
		t.Errorf("RoundParam = %v, want 0.12", got)
	}
	if got := RoundParam(0.125, 2); got != 0.13 {
		t.Errorf("RoundParam = %v, want 0.13", got)
	}
}

func TestCacheIOError_Unwrap(t *testing.T) {
	inner := os.ErrNotExist
	e := &CacheIOError{Key: "k", Op: "read", Err: inner}
	if e.Unwrap() != inner {
		t.Errorf("Unwrap did not return wrapped error")
	}
}
