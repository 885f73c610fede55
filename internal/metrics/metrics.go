// Package metrics tracks operational statistics for a simulator run:
// per-op-bit counters, a schedule-length histogram, and read-validation and
// crash-injection counts. Shape and bucket/percentile machinery follow the
// teacher repo's I/O metrics.
package metrics

import (
	"sync/atomic"
)

// ScheduleLenBuckets defines the candidate-set-size histogram buckets.
// Unlike the teacher's latency buckets (nanoseconds), these count
// candidates offered per tick, which rarely exceeds a few dozen even for
// large nPlug windows.
var ScheduleLenBuckets = []uint64{1, 2, 4, 8, 16, 32, 64, 128}

const numScheduleBuckets = 8

// Metrics accumulates counters for one simulator run. All fields are safe
// for concurrent use, though the simulator itself is single-threaded
// (spec.md §5); this mirrors the teacher's Metrics, which is built for a
// genuinely concurrent I/O loop.
type Metrics struct {
	SubmitLpackOps   atomic.Uint64
	CompleteLpackOps atomic.Uint64
	WriteVstorageOps atomic.Uint64
	WriteRstorageOps atomic.Uint64
	SubmitDpackOps   atomic.Uint64
	CompleteDpackOps atomic.Uint64
	EndReqWriteOps   atomic.Uint64

	ReadSubmitOps   atomic.Uint64
	ReadIOOps       atomic.Uint64
	ReadCompleteOps atomic.Uint64
	EndReqReadOps   atomic.Uint64

	WatermarkAdvances atomic.Uint64
	CrashInjections   atomic.Uint64

	ReadValidationOK     atomic.Uint64
	ReadValidationFailed atomic.Uint64

	ScheduleLenBuckets [numScheduleBuckets]atomic.Uint64
	TickCount          atomic.Uint64
}

// NewMetrics returns a zeroed Metrics.
func NewMetrics() *Metrics { return &Metrics{} }

// RecordScheduleLen records the number of candidates offered on one tick,
// updating the cumulative histogram buckets.
func (m *Metrics) RecordScheduleLen(n int) {
	m.TickCount.Add(1)
	for i, bucket := range ScheduleLenBuckets {
		if uint64(n) <= bucket {
			m.ScheduleLenBuckets[i].Add(1)
		}
	}
}

// RecordReadValidation records the outcome of validating one read address.
func (m *Metrics) RecordReadValidation(ok bool) {
	if ok {
		m.ReadValidationOK.Add(1)
	} else {
		m.ReadValidationFailed.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics' counters.
type MetricsSnapshot struct {
	SubmitLpackOps   uint64
	CompleteLpackOps uint64
	WriteVstorageOps uint64
	WriteRstorageOps uint64
	SubmitDpackOps   uint64
	CompleteDpackOps uint64
	EndReqWriteOps   uint64

	ReadSubmitOps   uint64
	ReadIOOps       uint64
	ReadCompleteOps uint64
	EndReqReadOps   uint64

	WatermarkAdvances uint64
	CrashInjections   uint64

	ReadValidationOK     uint64
	ReadValidationFailed uint64

	ScheduleLenHistogram [numScheduleBuckets]uint64
	TickCount            uint64
	TotalOps             uint64
}

// Snapshot copies every counter into a MetricsSnapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		SubmitLpackOps:       m.SubmitLpackOps.Load(),
		CompleteLpackOps:     m.CompleteLpackOps.Load(),
		WriteVstorageOps:     m.WriteVstorageOps.Load(),
		WriteRstorageOps:     m.WriteRstorageOps.Load(),
		SubmitDpackOps:       m.SubmitDpackOps.Load(),
		CompleteDpackOps:     m.CompleteDpackOps.Load(),
		EndReqWriteOps:       m.EndReqWriteOps.Load(),
		ReadSubmitOps:        m.ReadSubmitOps.Load(),
		ReadIOOps:            m.ReadIOOps.Load(),
		ReadCompleteOps:      m.ReadCompleteOps.Load(),
		EndReqReadOps:        m.EndReqReadOps.Load(),
		WatermarkAdvances:    m.WatermarkAdvances.Load(),
		CrashInjections:      m.CrashInjections.Load(),
		ReadValidationOK:     m.ReadValidationOK.Load(),
		ReadValidationFailed: m.ReadValidationFailed.Load(),
		TickCount:            m.TickCount.Load(),
	}
	for i := range s.ScheduleLenHistogram {
		s.ScheduleLenHistogram[i] = m.ScheduleLenBuckets[i].Load()
	}
	s.TotalOps = s.SubmitLpackOps + s.CompleteLpackOps + s.WriteVstorageOps +
		s.WriteRstorageOps + s.SubmitDpackOps + s.CompleteDpackOps + s.EndReqWriteOps +
		s.ReadSubmitOps + s.ReadIOOps + s.ReadCompleteOps + s.EndReqReadOps
	return s
}

// Observer allows pluggable collection of simulator events. Implementations
// must be safe for sequential reuse across a run; the manager calls them
// synchronously from Execute, inside the driver's single tick loop.
type Observer interface {
	ObserveExecute(packID int64, isWrite bool, opName string)
	ObserveWatermarkAdvance(oldPid, newPid int64)
	ObserveReadValidation(packID int64, addr uint64, ok bool)
	ObserveCrash(packID int64)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) ObserveExecute(int64, bool, string)       {}
func (NoOpObserver) ObserveWatermarkAdvance(int64, int64)     {}
func (NoOpObserver) ObserveReadValidation(int64, uint64, bool) {}
func (NoOpObserver) ObserveCrash(int64)                       {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	M *Metrics
}

// NewMetricsObserver creates an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver { return &MetricsObserver{M: m} }

func (o *MetricsObserver) ObserveExecute(_ int64, isWrite bool, opName string) {
	switch opName {
	case "SUBMIT_LPACK":
		o.M.SubmitLpackOps.Add(1)
	case "COMPLETE_LPACK":
		o.M.CompleteLpackOps.Add(1)
	case "WRITE_VSTORAGE":
		o.M.WriteVstorageOps.Add(1)
	case "WRITE_RSTORAGE":
		o.M.WriteRstorageOps.Add(1)
	case "SUBMIT_DPACK":
		o.M.SubmitDpackOps.Add(1)
	case "COMPLETE_DPACK":
		o.M.CompleteDpackOps.Add(1)
	case "END_REQ":
		if isWrite {
			o.M.EndReqWriteOps.Add(1)
		} else {
			o.M.EndReqReadOps.Add(1)
		}
	case "SUBMIT":
		o.M.ReadSubmitOps.Add(1)
	case "READ_VSTORAGE", "READ_RSTORAGE":
		o.M.ReadIOOps.Add(1)
	case "COMPLETE":
		o.M.ReadCompleteOps.Add(1)
	}
}

func (o *MetricsObserver) ObserveWatermarkAdvance(int64, int64) {
	o.M.WatermarkAdvances.Add(1)
}

func (o *MetricsObserver) ObserveReadValidation(_ int64, _ uint64, ok bool) {
	o.M.RecordReadValidation(ok)
}

func (o *MetricsObserver) ObserveCrash(int64) {
	o.M.CrashInjections.Add(1)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = NoOpObserver{}
