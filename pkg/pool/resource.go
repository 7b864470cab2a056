package pool

import "time"

// Resource wraps one backend connection handle with lifecycle metadata.
// At most one caller holds a given resource at a time; the pool's hand-off
// queue enforces exclusive ownership, so the metadata needs no locking.
type Resource[T any] struct {
	handle     T
	createdAt  time.Time
	lastUsedAt time.Time
	useCount   int64
	healthy    bool
}

// Handle returns the wrapped connection handle. The handle is owned
// exclusively by the holder until the resource is released.
func (r *Resource[T]) Handle() T {
	return r.handle
}

// CreatedAt returns when the underlying connection was created.
func (r *Resource[T]) CreatedAt() time.Time {
	return r.createdAt
}

// LastUsedAt returns when the resource was last acquired.
func (r *Resource[T]) LastUsedAt() time.Time {
	return r.lastUsedAt
}

// UseCount returns how many times the resource has been acquired.
func (r *Resource[T]) UseCount() int64 {
	return r.useCount
}

// Healthy reports the result of the last health check.
func (r *Resource[T]) Healthy() bool {
	return r.healthy
}

func (r *Resource[T]) age(now time.Time) time.Duration {
	return now.Sub(r.createdAt)
}
