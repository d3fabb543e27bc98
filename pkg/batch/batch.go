// Package batch partitions an ordered slice into contiguous, fixed-size batches.
//
// Batches are sub-slices of the input and share its backing array. Every batch holds
// exactly size items except the last, which holds the remainder. Items are never
// reordered, duplicated or dropped.
package batch

import (
	"errors"
	"fmt"
)

var ErrInvalidSize = errors.New("batch size must be positive")

// Batcher yields batches lazily. It is not safe for concurrent use.
type Batcher[T any] struct {
	items []T
	size  int
	next  int
}

// New returns a Batcher over items. A non-positive size is rejected.
func New[T any](items []T, size int) (*Batcher[T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	return &Batcher[T]{items: items, size: size}, nil
}

// Next returns the next batch, or false once the input is exhausted.
func (b *Batcher[T]) Next() ([]T, bool) {
	if b.next >= len(b.items) {
		return nil, false
	}
	end := b.next + b.size
	if end > len(b.items) {
		end = len(b.items)
	}
	chunk := b.items[b.next:end:end]
	b.next = end
	return chunk, true
}

// Count returns the total number of batches, ⌈len(items)/size⌉.
func (b *Batcher[T]) Count() int {
	return (len(b.items) + b.size - 1) / b.size
}

// Partition returns all batches at once.
func Partition[T any](items []T, size int) ([][]T, error) {
	b, err := New(items, size)
	if err != nil {
		return nil, err
	}
	batches := make([][]T, 0, b.Count())
	for chunk, ok := b.Next(); ok; chunk, ok = b.Next() {
		batches = append(batches, chunk)
	}
	return batches, nil
}
