package votes

import "context"

// Loaded holds a lazily hydrated value. The zero value is unloaded.
type Loaded[T any] struct {
	value T
	ok    bool
}

// Get returns the value and whether it has been loaded
func (l *Loaded[T]) Get() (T, bool) {
	return l.value, l.ok
}

// Set stores a loaded value
func (l *Loaded[T]) Set(value T) {
	l.value = value
	l.ok = true
}

// Reset discards the loaded value
func (l *Loaded[T]) Reset() {
	var zero T
	l.value = zero
	l.ok = false
}

// GetOrLoad returns the loaded value, calling load and keeping its result
// when nothing is loaded yet
func (l *Loaded[T]) GetOrLoad(ctx context.Context, load func(ctx context.Context) (T, error)) (T, error) {
	if l.ok {
		return l.value, nil
	}
	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.Set(value)
	return value, nil
}
