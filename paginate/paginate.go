package paginate

import "context"

// Page carries the pagination parameters for one fetch. An empty Cursor
// requests the first page; Limit is forwarded only when positive.
type Page struct {
	Cursor string
	Limit  int
}

// FetchFunc retrieves one page of results.
type FetchFunc[R any] func(ctx context.Context, page Page) (R, error)

// Options configures an iterator over responses of type R yielding items
// of type T.
type Options[R, T any] struct {
	// Items extracts the item slice from a response. Required: the
	// field name varies per endpoint.
	Items func(R) []T

	// Cursor extracts the next-page cursor; empty means no more pages.
	// When nil, responses implementing interface{ NextCursor() string }
	// are used, and anything else terminates after one page.
	Cursor func(R) string

	// PageSize is forwarded to the fetcher as the page limit.
	PageSize int

	// MaxItems stops iteration after this many items, even mid-page.
	// Zero means unlimited.
	MaxItems int
}

// Iterator yields items from consecutive pages on demand.
type Iterator[T any] struct {
	fetch    func(ctx context.Context, page Page) ([]T, string, error)
	pageSize int
	maxItems int

	buf     []T
	idx     int
	cursor  string
	count   int
	started bool
	done    bool
}

// New builds an iterator from a page fetcher. It panics if opts.Items is
// nil, since there is no sensible default for the items field.
func New[R, T any](fetch FetchFunc[R], opts Options[R, T]) *Iterator[T] {
	if opts.Items == nil {
		panic("paginate: Options.Items is required")
	}

	getCursor := opts.Cursor
	if getCursor == nil {
		getCursor = func(r R) string {
			if c, ok := any(r).(interface{ NextCursor() string }); ok {
				return c.NextCursor()
			}
			return ""
		}
	}

	return &Iterator[T]{
		fetch: func(ctx context.Context, page Page) ([]T, string, error) {
			resp, err := fetch(ctx, page)
			if err != nil {
				return nil, "", err
			}
			return opts.Items(resp), getCursor(resp), nil
		},
		pageSize: opts.PageSize,
		maxItems: opts.MaxItems,
	}
}

// Next returns the next item. The second result is false when iteration
// is finished; a fetch error both returns the error and terminates the
// iterator.
func (it *Iterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	for {
		if it.done {
			return zero, false, nil
		}

		if it.idx < len(it.buf) {
			item := it.buf[it.idx]
			it.idx++
			it.count++
			if it.maxItems > 0 && it.count >= it.maxItems {
				it.done = true
			}
			return item, true, nil
		}

		if it.started && it.cursor == "" {
			it.done = true
			return zero, false, nil
		}

		items, cursor, err := it.fetch(ctx, Page{Cursor: it.cursor, Limit: it.pageSize})
		if err != nil {
			it.done = true
			return zero, false, err
		}
		it.started = true
		it.buf = items
		it.idx = 0
		it.cursor = cursor
	}
}

// Collect drains the iterator into a slice.
func (it *Iterator[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}

// Count drains the iterator and returns the number of items without
// retaining them.
func (it *Iterator[T]) Count(ctx context.Context) (int, error) {
	n := 0
	for {
		_, ok, err := it.Next(ctx)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}

// First returns the first item satisfying pred, pulling no further pages
// once a match is found. The second result is false when the sequence
// ends without a match.
func (it *Iterator[T]) First(ctx context.Context, pred func(T) bool) (T, bool, error) {
	var zero T
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			return zero, false, nil
		}
		if pred(item) {
			return item, true, nil
		}
	}
}
