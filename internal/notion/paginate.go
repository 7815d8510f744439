package notion

import (
	"context"
	"iter"
)

// FetchFunc fetches the page of results starting at cursor ("" for the
// first page).
type FetchFunc[T any] func(ctx context.Context, cursor string) (List[T], error)

// Pages yields each page of results in order, following next_cursor until
// has_more is false. Iteration stops after the first error, which is
// yielded with a nil slice. The sequence is single-use.
func Pages[T any](ctx context.Context, fetch FetchFunc[T]) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		cursor := ""
		for {
			list, err := fetch(ctx, cursor)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(list.Results, nil) {
				return
			}
			if !list.HasMore || list.NextCursor == nil || *list.NextCursor == "" {
				return
			}
			cursor = *list.NextCursor
		}
	}
}

// CollectAll concatenates the results of every page.
func CollectAll[T any](ctx context.Context, fetch FetchFunc[T]) ([]T, error) {
	var out []T
	for items, err := range Pages(ctx, fetch) {
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}
