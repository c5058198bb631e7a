// Package orchestrator implements the matrix orchestrator (C6): it runs
// the end-to-end per-document pipeline, enforces triple-replay
// determinism and the authenticity gates, and lays out the artifact tree.
package orchestrator

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// DocState is one step of the per-doc state machine (spec §4.6 "State
// machine"): queued → indexing → retrieving → selecting → scoring →
// verifying → {ok, revise, fail}.
type DocState string

const (
	StateQueued     DocState = "queued"
	StateIndexing   DocState = "indexing"
	StateRetrieving DocState = "retrieving"
	StateSelecting  DocState = "selecting"
	StateScoring    DocState = "scoring"
	StateVerifying  DocState = "verifying"
	StateOK         DocState = "ok"
	StateRevise     DocState = "revise"
	StateFail       DocState = "fail"
)

var bucketDocs = []byte("doc_state")

// StateStore persists the operational run-progress ledger: which state
// each doc is in. This is an ops-only audit trail, never itself hashed
// into a gate decision — authenticity gates are recomputed fresh from
// artifacts on every run. Each transition is one bbolt Update followed by
// an explicit Sync.
type StateStore struct {
	db *bolt.DB
}

// OpenStateStore opens or creates the bbolt database at path.
func OpenStateStore(path string) (*StateStore, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{NoSync: true})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open state db: %w", err)
	}
	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error { return s.db.Close() }

// docStateRecord is the persisted per-doc record.
type docStateRecord struct {
	DocID string   `json:"doc_id"`
	State DocState `json:"state"`
	Note  string   `json:"note,omitempty"`
}

// SetState transitions a doc to state, syncing immediately so a crash
// mid-run leaves an accurate last-known state for operators.
func (s *StateStore) SetState(docID string, state DocState, note string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketDocs)
		if err != nil {
			return err
		}
		data, err := json.Marshal(docStateRecord{DocID: docID, State: state, Note: note})
		if err != nil {
			return err
		}
		return b.Put([]byte(docID), data)
	})
	if err != nil {
		return err
	}
	return s.db.Sync()
}

// State returns the last recorded state for docID, or "" if unknown.
func (s *StateStore) State(docID string) (DocState, error) {
	var rec docStateRecord
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(docID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return rec.State, nil
}

// All returns every recorded doc state, for matrix_contract.json assembly.
func (s *StateStore) All() (map[string]DocState, error) {
	out := make(map[string]DocState)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var rec docStateRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out[rec.DocID] = rec.State
			return nil
		})
	})
	return out, err
}
