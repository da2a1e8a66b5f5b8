package pool

// Pool is a strongly typed wrapper around sync.Pool with optional Reset() support.
// It eliminates the need for unsafe type assertions (interface{} casts). Objects
// returned from Get() are guaranteed to be the correct type. If the pooled type
// implements the Resettable interface, it is zeroed before being returned to the
// pool via Put().
//
// relay's HTTP layer uses this to reuse *bytes.Buffer across a streaming
// response's SSE re-encoding instead of allocating one per frame:
//
//   bufferPool := pool.NewLitePool(func() *bytes.Buffer {
//     return bytes.NewBuffer(make([]byte, 0, 4096))
//   })
//
//   buf := bufferPool.Get()
//   buf.Reset()
//   ...
//   bufferPool.Put(buf)

import "sync"

type Resettable interface {
	Reset()
}

type Pool[T any] struct {
	pool sync.Pool
	new  func() T
}

func NewLitePool[T any](newFn func() T) *Pool[T] {
	if newFn == nil {
		panic("litepool: constructor must not be nil")
	}
	// Validate early that the result is non-nil
	test := newFn()
	if any(test) == nil {
		panic("litepool: constructor returned nil")
	}

	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				v := newFn()
				if any(v) == nil {
					panic("litepool: constructor returned nil")
				}
				return v
			},
		},
		new: newFn,
	}
}

func (p *Pool[T]) Get() T {
	//nolint:forcetypeassert // safe due to validated New
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(v T) {
	if r, ok := any(v).(Resettable); ok {
		r.Reset()
	}
	p.pool.Put(v)
}
