package resp

import "sync"

// Allocator is the sole owner of any heap memory produced by DecodeAlloc.
// DecodeAlloc never retains the Allocator past its own return; FreeReply
// must be given the same Allocator that produced the value it's asked to
// release. Mixing allocators between a decode and its free is a caller
// error with undefined results (spec.md §5).
//
// Allocator pools released byte slices (mirroring the teacher's
// internal/bytesutil byte pool) and tracks a simple outstanding-allocation
// count, which is what the free-reply walker is responsible for driving
// back to zero for any value it's handed.
type Allocator struct {
	mu          sync.Mutex
	outstanding int
	bytePool    sync.Pool
}

// NewAllocator returns a ready-to-use Allocator.
func NewAllocator() *Allocator {
	a := &Allocator{}
	a.bytePool.New = func() any {
		b := make([]byte, 0, 64)
		return &b
	}
	return a
}

// Outstanding returns the number of not-yet-freed allocations made through
// this Allocator. A well-behaved caller that calls FreeReply on every value
// it decodes will see this return to its pre-decode value.
func (a *Allocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outstanding
}

func (a *Allocator) track() {
	a.mu.Lock()
	a.outstanding++
	a.mu.Unlock()
}

func (a *Allocator) untrack() {
	a.mu.Lock()
	a.outstanding--
	a.mu.Unlock()
}

// allocBytes returns a byte slice of length n, pulled from the Allocator's
// pool where possible, and counts it as one outstanding allocation.
func (a *Allocator) allocBytes(n int) []byte {
	a.track()
	bp := a.bytePool.Get().(*[]byte)
	b := *bp
	if cap(b) < n {
		b = make([]byte, n)
	} else {
		b = b[:n]
	}
	return b
}

// freeBytes returns b to the pool and decrements the outstanding count. It
// is the release half of allocBytes.
func (a *Allocator) freeBytes(b []byte) {
	a.untrack()
	b = b[:0]
	a.bytePool.Put(&b)
}

// allocNode counts one non-byte-slice allocation (a slice header, a map, an
// owned pointer cell, a DynamicReply tree node) as outstanding. It exists so
// FreeReply can verify every owning edge the decoder creates has a matching
// release edge, per spec.md §4.4's rationale.
func (a *Allocator) allocNode() { a.track() }
func (a *Allocator) freeNode()  { a.untrack() }
