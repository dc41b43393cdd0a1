package domain

// PageResult is one page of rows plus the total match count for the same
// filters.
type PageResult[T any] struct {
	Items        []T
	TotalMatched int
	Returned     int
}

// NewPageResult builds a PageResult with Returned derived from the items.
func NewPageResult[T any](items []T, totalMatched int) PageResult[T] {
	return PageResult[T]{
		Items:        items,
		TotalMatched: totalMatched,
		Returned:     len(items),
	}
}
