package gateway

import "sync/atomic"

// AdmissionController gates the number of requests allowed to execute
// concurrently. Admission is decided instantly with a lock-free
// compare-and-swap; there is no queue and no caller ever blocks
// waiting for capacity.
//
// Every successful TryAdmit must be paired with exactly one Release.
// The invariant 0 <= Current() <= Max() holds at all observable
// instants.
type AdmissionController struct {
	max     atomic.Int64
	current atomic.Int64
}

// NewAdmissionController creates a controller with the given maximum
// number of concurrently admitted requests.
func NewAdmissionController(maxConcurrent int) *AdmissionController {
	ac := &AdmissionController{}
	ac.max.Store(int64(maxConcurrent))
	return ac
}

// TryAdmit attempts to consume one unit of capacity. It returns true
// and increments the admitted count if capacity is available, false
// with no side effects otherwise.
func (ac *AdmissionController) TryAdmit() bool {
	for {
		current := ac.current.Load()
		if current >= ac.max.Load() {
			return false
		}
		if ac.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release returns one unit of capacity. It must be called exactly once
// for every successful TryAdmit, on every exit path.
func (ac *AdmissionController) Release() {
	ac.current.Add(-1)
}

// Current returns the number of requests currently admitted.
func (ac *AdmissionController) Current() int64 {
	return ac.current.Load()
}

// Max returns the configured admission limit.
func (ac *AdmissionController) Max() int64 {
	return ac.max.Load()
}

// UpdateMax changes the admission limit at runtime. Lowering the limit
// below the current admitted count does not evict in-flight requests;
// new admissions are rejected until enough releases occur.
func (ac *AdmissionController) UpdateMax(maxConcurrent int) {
	ac.max.Store(int64(maxConcurrent))
}
