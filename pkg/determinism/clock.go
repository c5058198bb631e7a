package determinism

import "time"

// Clock is the single process-wide time source. Every code path that would
// otherwise touch wall-clock time inside a hashed artifact must go through
// it (spec §9 "Global mutable state"). The orchestrator injects one
// DeterministicClock per run at the construction boundary.
type Clock interface {
	// Now returns the fixed deterministic timestamp for the current run,
	// formatted per RFC3339, identical for every call within the run.
	Now() string
}

// DeterministicClock always returns the configured constant. It exists so
// that CacheEntry.CreatedAt and every other timestamp that enters a hashed
// artifact is reproducible across fetch and replay.
type DeterministicClock struct {
	timestamp string
}

// NewDeterministicClock validates and wraps the configured timestamp.
func NewDeterministicClock(timestamp string) (*DeterministicClock, error) {
	if _, err := time.Parse(time.RFC3339, timestamp); err != nil {
		return nil, err
	}
	return &DeterministicClock{timestamp: timestamp}, nil
}

func (c *DeterministicClock) Now() string { return c.timestamp }
