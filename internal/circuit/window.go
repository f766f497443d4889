package circuit

import "time"

// WindowHorizon is the fixed time bound of the sliding window. Samples older
// than this never influence the failure rate, regardless of WindowSize.
const WindowHorizon = 60 * time.Second

// Sample is one recorded call outcome.
type Sample struct {
	At      time.Time
	Failure bool
}

// failureCount reports how many samples in the window are failures.
func failureCount(window []Sample) int {
	n := 0
	for _, s := range window {
		if s.Failure {
			n++
		}
	}
	return n
}

// failureRate computes the window failure rate in percent. An empty window
// has a rate of zero. The same evaluation backs both the open decision and
// the stats snapshot so the observed rate and the rate that triggered a
// transition never diverge.
func failureRate(window []Sample) float64 {
	if len(window) == 0 {
		return 0
	}
	return float64(failureCount(window)) / float64(len(window)) * 100
}
