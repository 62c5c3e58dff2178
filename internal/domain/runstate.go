package domain

import (
	"sync/atomic"
	"time"
)

// RunState holds the process-wide counters of one bot run. It is written by
// the control loop and order pipeline and read concurrently by the ops API.
type RunState struct {
	running       atomic.Bool
	orders        atomic.Int64
	errors        atomic.Int64
	consecutive   atomic.Int64
	loops         atomic.Int64
	lastHeartbeat atomic.Int64
}

// RunStateSnapshot is a consistent-enough copy of RunState for reporting.
type RunStateSnapshot struct {
	Running           bool      `json:"running"`
	OrderCount        int64     `json:"order_count"`
	ErrorCount        int64     `json:"error_count"`
	ConsecutiveErrors int64     `json:"consecutive_errors"`
	LoopCount         int64     `json:"loop_count"`
	LastHeartbeat     time.Time `json:"last_heartbeat"`
}

// SetRunning sets the flag the control loop polls between iterations.
func (s *RunState) SetRunning(v bool) { s.running.Store(v) }

// Running reports whether the loop should keep iterating.
func (s *RunState) Running() bool { return s.running.Load() }

// RecordOrder counts an accepted or simulated order and closes the
// consecutive-error streak.
func (s *RunState) RecordOrder() int64 {
	s.consecutive.Store(0)
	return s.orders.Add(1)
}

// RecordError counts a failure toward both the total and the current
// streak.
func (s *RunState) RecordError() int64 {
	s.consecutive.Add(1)
	return s.errors.Add(1)
}

// OrderCount returns the number of accepted or simulated orders.
func (s *RunState) OrderCount() int64 { return s.orders.Load() }

// ErrorCount returns the total number of recorded failures.
func (s *RunState) ErrorCount() int64 { return s.errors.Load() }

// ConsecutiveErrors returns the failures since the last recorded order.
func (s *RunState) ConsecutiveErrors() int64 { return s.consecutive.Load() }

// NextLoop increments and returns the iteration counter.
func (s *RunState) NextLoop() int64 { return s.loops.Add(1) }

// LoopCount returns the number of iterations started.
func (s *RunState) LoopCount() int64 { return s.loops.Load() }

// SetHeartbeat stores the time of the latest iteration.
func (s *RunState) SetHeartbeat(t time.Time) { s.lastHeartbeat.Store(t.UnixNano()) }

// LastHeartbeat returns the latest heartbeat, or the zero time before the
// first iteration.
func (s *RunState) LastHeartbeat() time.Time {
	ns := s.lastHeartbeat.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// Snapshot copies the counters.
func (s *RunState) Snapshot() RunStateSnapshot {
	return RunStateSnapshot{
		Running:           s.Running(),
		OrderCount:        s.OrderCount(),
		ErrorCount:        s.ErrorCount(),
		ConsecutiveErrors: s.ConsecutiveErrors(),
		LoopCount:         s.LoopCount(),
		LastHeartbeat:     s.LastHeartbeat(),
	}
}
