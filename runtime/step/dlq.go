package step

import "context"

// DeadLetterQueue is an optional capability a step may implement to recover
// a failed input after retries are exhausted. When recover_on_failure is
// true and the step implements this interface, the runner calls Recover
// instead of propagating the failure.
//
// A step that does not implement DeadLetterQueue, or one that returns
// ok=false, causes the runner to drop the failed item with a warning
// (the default behavior per the step contract).
type DeadLetterQueue[T any] interface {
	// Recover is invoked with the input that failed all retry attempts and
	// the terminal error. It returns a replacement output, whether a
	// replacement was produced (false means "drop, no emission"), and an
	// error if recovery itself failed.
	Recover(ctx context.Context, failed T, cause error) (replacement T, ok bool, err error)
}

// AsDeadLetterQueue returns s as a DeadLetterQueue if it implements the
// capability, along with true; otherwise the zero value and false.
func AsDeadLetterQueue[T any](s Step[T]) (DeadLetterQueue[T], bool) {
	dlq, ok := s.(DeadLetterQueue[T])
	return dlq, ok
}
