// Package cache implements the content-addressed fetch/replay cache (C2).
// Every external-model call — embeddings and narrative edits alike — is
// made idempotent and reproducible by keying on a canonical-json digest of
// {model_id, params, input}. A privileged fetch phase may hit the network;
// offline replay must not, and fails closed on any miss.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/esgscore/maturity/internal/logger"
	"github.com/esgscore/maturity/pkg/determinism"
)

// Phase is the two-phase cache protocol switch.
type Phase string

const (
	PhaseFetch  Phase = "fetch"
	PhaseReplay Phase = "replay"
)

// FetchFunc performs the live call. Only invoked in fetch mode on a miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Cache is the on-disk content-addressed store. One Cache instance is
// shared read-only across concurrent documents (spec §5 "on-disk cache is
// the only cross-process shared resource").
type Cache struct {
	root    string // cache/
	phase   Phase
	clock   determinism.Clock
	ledger  *Ledger
	limiter *rate.Limiter
	timeout int // seconds, fetch-mode only
}

// Options configures a Cache.
type Options struct {
	Root            string
	Phase           Phase
	Clock           determinism.Clock
	FetchRatePerSec int
	FetchTimeoutSec int
}

// Open opens the cache root, creating the embeddings/edits subdirectories
// and the ledger file if absent.
func Open(opts Options) (*Cache, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("cache: root is required")
	}
	for _, sub := range []string{"embeddings", "edits"} {
		if err := os.MkdirAll(filepath.Join(opts.Root, sub), 0o755); err != nil {
			return nil, &CacheIOError{Op: "mkdir", Err: err}
		}
	}
	ledger, err := OpenLedger(filepath.Join(opts.Root, "ledger.jsonl"))
	if err != nil {
		return nil, &CacheIOError{Op: "open_ledger", Err: err}
	}
	rps := opts.FetchRatePerSec
	if rps <= 0 {
		rps = 5
	}
	timeout := opts.FetchTimeoutSec
	if timeout <= 0 {
		timeout = 30
	}
	return &Cache{
		root:    opts.Root,
		phase:   opts.Phase,
		clock:   opts.Clock,
		ledger:  ledger,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		timeout: timeout,
	}, nil
}

func (c *Cache) Close() error { return c.ledger.Close() }

// OnlineCallCount reports how many ledger entries were recorded with
// online=true, for the matrix orchestrator's offline authenticity gate.
func (c *Cache) OnlineCallCount() (int, error) { return c.ledger.CountOnline() }

// entryOnDisk is the JSON shape of a single cache file.
type entryOnDisk struct {
	Key         string `json:"key"`
	ModelID     string `json:"model_id"`
	Kind        string `json:"kind"`
	OutputB64   string `json:"output_b64"`
	OutputSHA   string `json:"output_sha256"`
	CreatedAt   string `json:"created_at"`
}

// Key computes the canonical cache key for {model_id, params, input}.
func Key(modelID string, params map[string]any, input string) (string, error) {
	canon, err := CanonicalJSON(map[string]any{
		"model_id": modelID,
		"params":   params,
		"input":    CanonicalizeText(input),
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

func (c *Cache) pathFor(kind, key string) (string, error) {
	switch kind {
	case "embed":
		return filepath.Join(c.root, "embeddings", key+".json"), nil
	case "edit":
		return filepath.Join(c.root, "edits", key+".json"), nil
	default:
		return "", fmt.Errorf("cache: unknown kind %q", kind)
	}
}

// GetOrCall implements the two-phase protocol described in spec §4.2.
// kind is "embed" or "edit"; params must already be canonicalized by the
// caller (e.g. rounded to declared precision).
func (c *Cache) GetOrCall(ctx context.Context, kind, modelID string, params map[string]any, input string, fetch FetchFunc) ([]byte, error) {
	key, err := Key(modelID, params, input)
	if err != nil {
		return nil, err
	}
	path, err := c.pathFor(kind, key)
	if err != nil {
		return nil, err
	}

	if data, ok, err := c.load(path); err != nil {
		return nil, err
	} else if ok {
		_ = c.ledger.Append(LedgerEntry{
			Phase: string(c.phase), Key: key, Kind: kind, ModelID: modelID,
			Online: false, Hit: true, Timestamp: c.clock.Now(),
		})
		return data, nil
	}

	if c.phase == PhaseReplay {
		_ = c.ledger.Append(LedgerEntry{
			Phase: string(c.phase), Key: key, Kind: kind, ModelID: modelID,
			Online: false, Hit: false, Timestamp: c.clock.Now(),
		})
		return nil, &CacheMissError{Key: key, Kind: kind, ModelID: modelID, Input: input}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("cache: rate limiter: %w", err)
		}
	}
	fetchCtx, cancel := contextWithTimeout(ctx, c.timeout)
	defer cancel()

	output, err := fetch(fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("cache: fetch %s/%s: %w", kind, modelID, err)
	}

	if err := c.store(path, key, kind, modelID, output); err != nil {
		return nil, err
	}
	_ = c.ledger.Append(LedgerEntry{
		Phase: string(c.phase), Key: key, Kind: kind, ModelID: modelID,
		Online: true, Hit: false, Timestamp: c.clock.Now(),
	})
	logger.With(logger.Fields{"kind": kind, "model_id": modelID, "key": key}).Info("cache fetch stored")
	return output, nil
}

func (c *Cache) load(path string) ([]byte, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &CacheIOError{Op: "read", Err: err}
	}
	var e entryOnDisk
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, &CacheIOError{Op: "decode", Err: err}
	}
	data, err := decodeOutput(e.OutputB64)
	if err != nil {
		return nil, false, &CacheIOError{Op: "decode_output", Err: err}
	}
	return data, true, nil
}

// store writes via write-to-temp-then-rename so concurrent writers of the
// same key are idempotent and a crash never leaves a half-written cache
// file (spec §5 "write-then-rename (atomic) pattern").
func (c *Cache) store(path, key, kind, modelID string, output []byte) error {
	sum := sha256.Sum256(output)
	e := entryOnDisk{
		Key:       key,
		ModelID:   modelID,
		Kind:      kind,
		OutputB64: encodeOutput(output),
		OutputSHA: hex.EncodeToString(sum[:]),
		CreatedAt: c.clock.Now(),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return &CacheIOError{Key: key, Op: "marshal", Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return &CacheIOError{Key: key, Op: "write_tmp", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &CacheIOError{Key: key, Op: "rename", Err: err}
	}
	return nil
}
