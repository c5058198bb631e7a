package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// CanonicalJSON renders v as canonical JSON: UTF-8, object keys sorted,
// (',', ':') separators, no insignificant whitespace, LF line endings, no
// BOM (see spec GLOSSARY "Canonical JSON"). It is the determinism substrate
// for cache keys and Output Contracts alike.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical json: marshal: %w", err)
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical json: decode: %w", err)
	}
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(t.String())
	case string:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonical json: unsupported type %T", v)
	}
	return nil
}

// CanonicalizeText applies the spec's input-canonicalization rule for cache
// keys: strip leading/trailing whitespace only. Case is never folded —
// downstream quotations must remain byte-identical to source text.
func CanonicalizeText(s string) string {
	return strings.TrimSpace(s)
}

// RoundParam rounds a float64 param to the given number of declared decimal
// places so that equivalent numeric params always collide in the cache key
// (spec §4.2 "numeric params are rounded to their declared precision").
func RoundParam(v float64, precision int) float64 {
	mul := math.Pow(10, float64(precision))
	return math.Round(v*mul) / mul
}
