package pipeline

import (
	"context"
)

const streamBufferSize = 8

// Take forwards at most n items. Zero forwards everything.
func Take[T any](ctx context.Context, n uint, inputStream <-chan T) <-chan T {
	outputStream := make(chan T, streamBufferSize)
	go func() {
		defer close(outputStream)

		i := uint(0)
		for {
			if 0 < n && n <= i {
				return
			}

			select {
			case <-ctx.Done():
				return
			case item, ok := <-inputStream:
				if !ok {
					return
				}

				select {
				case <-ctx.Done():
					return
				case outputStream <- item:
				}
				i++
			}
		}
	}()

	return outputStream
}

// ToSlice drains inputStream, stopping early when ctx is done.
func ToSlice[T any](ctx context.Context, inputStream <-chan T) []T {
	output := make([]T, 0)
	for item := range OrDone(ctx, inputStream) {
		output = append(output, item)
	}

	return output
}

func OrDone[T any](ctx context.Context, inputStream <-chan T) <-chan T {
	outputStream := make(chan T, streamBufferSize)
	go func() {
		defer close(outputStream)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-inputStream:
				if !ok {
					return
				}

				select {
				case <-ctx.Done():
					return
				case outputStream <- v:
				}
			}
		}
	}()

	return outputStream
}
