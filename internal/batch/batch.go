// Package batch splits long key lists into bounded chunks so that each chunk
// fits into a single tracker query.
package batch

import (
	"context"
	"fmt"
)

// DefaultSize is the number of issue keys sent in one tracker search.
const DefaultSize = 100

// Partition splits items into contiguous chunks [i*size, i*size+size). The
// final chunk may be shorter. No chunk is empty and zero items yield nil.
// A size below one falls back to DefaultSize.
func Partition[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		size = DefaultSize
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Collect calls fn once per chunk, sequentially and in chunk order, and
// concatenates the results. Zero items return nil without calling fn.
func Collect[T, R any](ctx context.Context, items []T, size int, fn func(ctx context.Context, chunk []T) ([]R, error)) ([]R, error) {
	var results []R
	for i, chunk := range Partition(items, size) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := fn(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		results = append(results, got...)
	}
	return results, nil
}
