package collector

import (
	"errors"
	"fmt"
	"time"

	"StockLens/internal/model"
)

// ErrEmptyResult matches every EmptyResultError.
var ErrEmptyResult = errors.New("empty result")

// EmptyResultError is returned when the provider answered with a valid but
// empty dataset, usually an invalid or delisted symbol or a range without
// trading days.
type EmptyResultError struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no data for %s between %s and %s", e.Symbol,
		e.Start.Format(model.DateLayout), e.End.Format(model.DateLayout))
}

// Is reports whether target is ErrEmptyResult.
func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }

// FetchError wraps any transport, provider or parsing failure.
type FetchError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
