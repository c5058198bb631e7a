package main

import "fmt"

// gateExitError carries the exit code mandated by spec §6 "Exit codes"
// for the first authenticity gate that failed: 2 determinism, 3 parity,
// 4 evidence, 5 provenance. 6 (cache miss in replay) surfaces directly
// from the cache package's own error and never reaches this type.
type gateExitError struct {
	gate string
	code int
	msg  string
}

func (e *gateExitError) Error() string  { return fmt.Sprintf("gate %s failed: %s", e.gate, e.msg) }
func (e *gateExitError) ExitCode() int  { return e.code }

var gateExitCodes = map[string]int{
	"determinism": 2,
	"parity":      3,
	"evidence":    4,
	"provenance":  5,
}

// cacheMissExitError is the exit-6 case: a replay run hit an uncached
// call (spec §6 "6 = cache miss in replay").
type cacheMissExitError struct{ msg string }

func (e *cacheMissExitError) Error() string { return e.msg }
func (e *cacheMissExitError) ExitCode() int { return 6 }
