// Package benchmarks provides timing estimates for the deployment stages.
package benchmarks

import (
	"time"
)

// StageRecord is the time spent working towards one stage. EndedAt is nil
// while the stage has not been reached.
type StageRecord struct {
	Stage     string
	StartedAt time.Time
	EndedAt   *time.Time
}

// DefaultTimings are median durations in seconds from fresh deployments.
// The load balancer and the service dominate: both wait for AWS to report
// them active or stable.
var DefaultTimings = map[string]int{
	"network-ready":  20,
	"storage-ready":  90,
	"balancer-ready": 180,
	"compute-ready":  120,
	"dns-ready":      5,
}

// StageOrder defines the sequence of stages for ETA calculation.
var StageOrder = []string{
	"network-ready",
	"storage-ready",
	"balancer-ready",
	"compute-ready",
	"dns-ready",
}

// EstimateRemaining calculates the estimated time remaining based on the
// stage being worked on, the time spent on it, and the stages already reached.
func EstimateRemaining(currentStage string, stageElapsed time.Duration, history []StageRecord) time.Duration {
	return EstimateRemainingWithScale(currentStage, stageElapsed, history, PerformanceScale(currentStage, stageElapsed, history))
}

// EstimateRemainingWithScale calculates ETA while applying a performance scale factor.
func EstimateRemainingWithScale(
	currentStage string,
	stageElapsed time.Duration,
	history []StageRecord,
	scale float64,
) time.Duration {
	var remaining time.Duration

	currentIdx := -1
	for i, s := range StageOrder {
		if s == currentStage {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		return 0
	}

	// Current stage: max(0, expected - elapsed)
	if expected, ok := DefaultTimings[currentStage]; ok {
		expectedDur := time.Duration(float64(time.Duration(expected)*time.Second) * scale)
		if expectedDur > stageElapsed {
			remaining += expectedDur - stageElapsed
		}
	}

	reached := make(map[string]bool)
	for _, rec := range history {
		if rec.EndedAt != nil {
			reached[rec.Stage] = true
		}
	}

	for i := currentIdx + 1; i < len(StageOrder); i++ {
		stage := StageOrder[i]
		if reached[stage] {
			continue
		}
		if expected, ok := DefaultTimings[stage]; ok {
			remaining += time.Duration(float64(time.Duration(expected)*time.Second) * scale)
		}
	}

	return remaining
}

// PerformanceScale derives a speed multiplier from observed-vs-expected durations.
// Example: expected 3m, observed 4m30s => scale=1.5 (future ETAs are stretched by 50%).
func PerformanceScale(currentStage string, stageElapsed time.Duration, history []StageRecord) float64 {
	var expectedTotal time.Duration
	var actualTotal time.Duration

	for _, rec := range history {
		expectedSecs, ok := DefaultTimings[rec.Stage]
		if !ok || rec.EndedAt == nil {
			continue
		}
		expectedTotal += time.Duration(expectedSecs) * time.Second
		actualTotal += rec.EndedAt.Sub(rec.StartedAt)
	}

	// An overrunning current stage counts immediately so the ETA adapts quickly.
	if expectedSecs, ok := DefaultTimings[currentStage]; ok && stageElapsed > 0 {
		expectedCurrent := time.Duration(expectedSecs) * time.Second
		if stageElapsed > expectedCurrent {
			expectedTotal += expectedCurrent
			actualTotal += stageElapsed
		}
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// TotalEstimate returns the total estimated deployment time.
func TotalEstimate() time.Duration {
	var total time.Duration
	for _, stage := range StageOrder {
		if secs, ok := DefaultTimings[stage]; ok {
			total += time.Duration(secs) * time.Second
		}
	}
	return total
}
