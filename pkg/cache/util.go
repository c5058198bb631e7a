package cache

import (
	"context"
	"encoding/base64"
	"time"
)

func encodeOutput(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func decodeOutput(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// contextWithTimeout bounds a fetch-mode live call. When seconds <= 0 it
// returns a cancelable child of parent with no deadline, though Open always
// defaults to 30.
func contextWithTimeout(parent context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, time.Duration(seconds)*time.Second)
}
