// Package mempool pools the per-pixel scratch slices of the detector stages.
package mempool

import "sync"

const classStep = 1024

// sizeClass rounds n up to the next multiple of classStep.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

// Pool hands out slices of T grouped by size class.
type Pool[T any] struct {
	classes sync.Map // size class -> *sync.Pool
}

func (p *Pool[T]) class(cls int) *sync.Pool {
	v, _ := p.classes.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return v.(*sync.Pool)
}

// Get returns a zeroed slice of length n. Release it with Put.
func (p *Pool[T]) Get(n int) []T {
	if n <= 0 {
		return nil
	}
	cls := sizeClass(n)
	bp, _ := p.class(cls).Get().(*[]T)
	if bp == nil || cap(*bp) < cls {
		return make([]T, n)
	}
	buf := (*bp)[:n]
	clear(buf)
	return buf
}

// Put returns buf to the pool. Slices whose capacity is not a size class
// are dropped.
func (p *Pool[T]) Put(buf []T) {
	c := cap(buf)
	if c == 0 || c%classStep != 0 {
		return
	}
	buf = buf[:c]
	p.class(c).Put(&buf)
}

var (
	float32s Pool[float32]
	int32s   Pool[int32]
)

// GetFloat32 retrieves a zeroed []float32 of length n.
func GetFloat32(n int) []float32 { return float32s.Get(n) }

// PutFloat32 releases a buffer obtained from GetFloat32. Nil is ignored.
func PutFloat32(buf []float32) { float32s.Put(buf) }

// GetInt32 retrieves a zeroed []int32 of length n.
func GetInt32(n int) []int32 { return int32s.Get(n) }

// PutInt32 releases a buffer obtained from GetInt32. Nil is ignored.
func PutInt32(buf []int32) { int32s.Put(buf) }
