package operations

import (
	"sync"
	"time"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/census"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// OperationStatusValue represents the overall run status
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState is the state of one run. Steps run one at a time, so the
// data fields are handed from step to step without locking; the status
// fields are guarded because summaries may be taken from other goroutines.
type OperationState struct {
	mu sync.RWMutex

	ID        string
	Status    OperationStatusValue
	StartTime time.Time
	EndTime   *time.Time
	Error     error

	steps map[string]*StepState
	order []string

	// Outputs of the pipeline steps, in the order they are produced.
	Raw         domain.RawTable
	FetchReport *census.FetchReport
	Clean       *domain.CleanResult
	Economy     *domain.Economy
	Tables      *domain.AnalysisTables
	OutputPath  string
	CSVPaths    []string
}

// NewOperationState creates a new run state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		steps:     make(map[string]*StepState),
	}
}

// Start marks the run as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the run as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the run as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the run as cancelled
func (p *OperationState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// GetStatus returns the run status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.steps[stepID]
}

// SetStage records the state of a Step. Steps keep the order in which
// they were first set.
func (p *OperationState) SetStage(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.steps[stepID]; !ok {
		p.order = append(p.order, stepID)
	}
	p.steps[stepID] = state
}

// StepResults returns a snapshot of every Step in execution order
func (p *OperationState) StepResults() []StepResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	results := make([]StepResult, 0, len(p.order))
	for _, id := range p.order {
		results = append(results, p.steps[id].Result())
	}
	return results
}
