// Package compliance checks the parameters of an executed batch record
// against the master record held in a knowledge base.
//
// Every stage returns an Outcome instead of an error: a failed external call
// yields the stage's fallback value with Degraded set, so one bad chunk never
// stops a document.
package compliance

// Outcome is a stage result. Degraded distinguishes a fallback value from a
// genuinely empty one.
type Outcome[T any] struct {
	Value    T
	Degraded bool
	Reason   string
}

func ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func degraded[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Value: v, Degraded: true, Reason: reason}
}
