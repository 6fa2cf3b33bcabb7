package operations

import (
	"context"
	"sync"
	"time"
)

// Step represents a single step of the pipeline
type Step interface {
	// ID returns the unique identifier for this Step
	ID() string

	// Name returns the human-readable name for this Step
	Name() string

	// GetDependencies returns the IDs of steps that must complete before this Step
	GetDependencies() []string

	// Validate checks if the Step can be executed with the current state
	Validate(state *OperationState) error

	// Execute runs the Step and stores its output on state
	Execute(ctx context.Context, state *OperationState) error
}

// StepStatus represents the current status of a Step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState tracks one step through a run. Start and end times are zero
// until the step starts or finishes.
type StepState struct {
	mu      sync.RWMutex
	id      string
	name    string
	status  StepStatus
	started time.Time
	ended   time.Time
	message string
	err     error
}

// NewStepState returns a pending step state.
func NewStepState(id, name string) *StepState {
	return &StepState{id: id, name: name, status: StepStatusPending}
}

// Start marks the step active.
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = time.Now()
	s.status = StepStatusActive
}

// Complete marks the step completed with a short result message.
func (s *StepState) Complete(message string) { s.finish(StepStatusCompleted, message, nil) }

// Fail marks the step failed.
func (s *StepState) Fail(err error) { s.finish(StepStatusFailed, "", err) }

// Skip marks the step skipped; reason is kept as its message.
func (s *StepState) Skip(reason string) { s.finish(StepStatusSkipped, reason, nil) }

func (s *StepState) finish(status StepStatus, message string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = time.Now()
	s.status = status
	s.message = message
	s.err = err
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Duration is zero for a step that never started and keeps growing while
// the step is active.
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration()
}

func (s *StepState) duration() time.Duration {
	switch {
	case s.started.IsZero():
		return 0
	case s.ended.IsZero():
		return time.Since(s.started)
	default:
		return s.ended.Sub(s.started)
	}
}

// Result returns a snapshot of the state for the run summary.
func (s *StepState) Result() StepResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := StepResult{
		ID:       s.id,
		Name:     s.name,
		Status:   s.status,
		Duration: s.duration(),
		Message:  s.message,
	}
	if s.err != nil {
		r.Error = s.err.Error()
	}
	return r
}

// stepInfo holds the identity and dependencies shared by every step.
type stepInfo struct {
	id   string
	name string
	deps []string
}

func newStepInfo(id, name string, deps ...string) stepInfo {
	return stepInfo{id: id, name: name, deps: deps}
}

func (b stepInfo) ID() string                { return b.id }
func (b stepInfo) Name() string              { return b.name }
func (b stepInfo) GetDependencies() []string { return b.deps }
