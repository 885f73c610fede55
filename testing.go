package walbsim

import "sync"

// RecordingObserver implements Observer by appending every event to an
// in-memory log, for assertions in tests that need to check the exact
// sequence of executes/validations/crashes a run produced — the same
// call-tracking role the teacher's MockBackend plays for backend calls.
type RecordingObserver struct {
	mu sync.Mutex

	Executes           []ExecuteEvent
	WatermarkAdvances  []WatermarkEvent
	ReadValidations    []ReadValidationEvent
	Crashes            []int64
}

// ExecuteEvent records one Observer.ObserveExecute call.
type ExecuteEvent struct {
	PackID  int64
	IsWrite bool
	OpName  string
}

// WatermarkEvent records one Observer.ObserveWatermarkAdvance call.
type WatermarkEvent struct {
	OldPid, NewPid int64
}

// ReadValidationEvent records one Observer.ObserveReadValidation call.
type ReadValidationEvent struct {
	PackID int64
	Addr   uint64
	OK     bool
}

// NewRecordingObserver returns an empty RecordingObserver.
func NewRecordingObserver() *RecordingObserver { return &RecordingObserver{} }

func (r *RecordingObserver) ObserveExecute(packID int64, isWrite bool, opName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Executes = append(r.Executes, ExecuteEvent{PackID: packID, IsWrite: isWrite, OpName: opName})
}

func (r *RecordingObserver) ObserveWatermarkAdvance(oldPid, newPid int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.WatermarkAdvances = append(r.WatermarkAdvances, WatermarkEvent{OldPid: oldPid, NewPid: newPid})
}

func (r *RecordingObserver) ObserveReadValidation(packID int64, addr uint64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReadValidations = append(r.ReadValidations, ReadValidationEvent{PackID: packID, Addr: addr, OK: ok})
}

func (r *RecordingObserver) ObserveCrash(packID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Crashes = append(r.Crashes, packID)
}

var _ Observer = (*RecordingObserver)(nil)
