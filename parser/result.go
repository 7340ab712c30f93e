package parser

// RowResult carries one parsed row or the reason it was rejected.
// Parsers return every row they saw; consumers count and log the
// failures without stopping the file.
type RowResult[T any] struct {
	Row T
	Err error
}

func okRow[T any](row T) RowResult[T] {
	return RowResult[T]{Row: row}
}

func badRow[T any](err error) RowResult[T] {
	return RowResult[T]{Err: err}
}

// SplitResults separates good rows from errors.
func SplitResults[T any](results []RowResult[T]) ([]T, []error) {
	rows := make([]T, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		rows = append(rows, r.Row)
	}
	return rows, errs
}
