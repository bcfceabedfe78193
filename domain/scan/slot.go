package scan

import "sync/atomic"

// Slot holds at most one current value. Swap installs a new value and
// disposes the one it replaced; there is no queue, only "current or none".
// All operations are lock-free and safe for concurrent use.
type Slot[T any] struct {
	cur     atomic.Pointer[T]
	dispose func(*T)
}

// NewSlot returns an empty slot calling dispose on replaced values.
func NewSlot[T any](dispose func(*T)) *Slot[T] {
	return &Slot[T]{dispose: dispose}
}

// Swap installs next (which may be nil) and disposes the previous value.
func (s *Slot[T]) Swap(next *T) {
	prev := s.cur.Swap(next)
	if prev != nil && prev != next && s.dispose != nil {
		s.dispose(prev)
	}
}

// Current returns the installed value or nil.
func (s *Slot[T]) Current() *T { return s.cur.Load() }

// IsCurrent reports whether v is the installed value.
func (s *Slot[T]) IsCurrent(v *T) bool { return v != nil && s.cur.Load() == v }

// Release empties the slot if v is still installed, without disposing it.
func (s *Slot[T]) Release(v *T) bool { return s.cur.CompareAndSwap(v, nil) }
