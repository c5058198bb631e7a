package orchestrator

// TripleReplay runs fn three times and returns the three canonical-JSON
// outputs plus the determinism gate verdict (spec §4.6 step 5, §8 P1).
// fn must be side-effect-free with respect to the deterministic clock and
// seed it closes over; the orchestrator is responsible for freezing those
// before calling TripleReplay.
func TripleReplay(fn func(run int) ([]byte, error)) ([3][]byte, GateStatus, error) {
	var outputs [3][]byte
	for i := 0; i < 3; i++ {
		out, err := fn(i + 1)
		if err != nil {
			return outputs, GateStatus{}, err
		}
		outputs[i] = out
	}
	return outputs, DeterminismGate(outputs), nil
}
