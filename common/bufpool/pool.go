// Package bufpool provides size-bucketed byte-slice pools to keep the
// proxy copy loops off the GC's back.
package bufpool

import "sync"

const DefaultSize = 64 * 1024

// Pool is a sync.Pool of fixed-size byte slices.
type Pool struct {
	pool sync.Pool
}

func NewPool(size int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

func (p *Pool) Get() []byte {
	bufPtr := p.pool.Get().(*[]byte)
	return *bufPtr
}

func (p *Pool) Put(buf []byte) {
	p.pool.Put(&buf)
}

var (
	SmallPool  = NewPool(4 * 1024)
	MediumPool = NewPool(16 * 1024)
	LargePool  = NewPool(DefaultSize)
)

// Get returns a buffer from the bucket that best fits size.
func Get(size int) []byte {
	switch {
	case size <= 4*1024:
		return SmallPool.Get()[:size]
	case size <= 16*1024:
		return MediumPool.Get()[:size]
	default:
		return LargePool.Get()[:size]
	}
}

// Put returns buf to the bucket matching its capacity.
func Put(buf []byte) {
	switch c := cap(buf); {
	case c <= 4*1024:
		SmallPool.Put(buf[:c])
	case c <= 16*1024:
		MediumPool.Put(buf[:c])
	default:
		LargePool.Put(buf[:c])
	}
}
