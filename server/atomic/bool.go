package atomic

import "sync/atomic"

// Bool is a boolean that can be read and written from multiple goroutines.
// The zero value is false.
type Bool struct {
	val int32
}

func toInt32(b bool) int32 {
	if b {
		return 1
	}

	return 0
}

// CompareAndSwap sets the value to value when the current value is !value.
// It returns true when the value was changed.
func (b *Bool) CompareAndSwap(value bool) bool {
	return atomic.CompareAndSwapInt32(&b.val, toInt32(!value), toInt32(value))
}

func (b *Bool) Set(value bool) {
	atomic.StoreInt32(&b.val, toInt32(value))
}

func (b *Bool) Get() bool {
	return atomic.LoadInt32(&b.val) == 1
}

// Toggle flips the value and returns the new one.
func (b *Bool) Toggle() bool {
	for {
		old := atomic.LoadInt32(&b.val)
		if atomic.CompareAndSwapInt32(&b.val, old, 1-old) {
			return old == 0
		}
	}
}
