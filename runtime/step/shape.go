package step

// Shape identifies a step's streaming contract: what it consumes and what
// it produces. The runner uses Shape to decide legal adaptations and
// parallelism candidacy; it never infers shape from reflection.
//
//nolint:revive // Intentionally named Shape for clarity; step.Type would be too generic
type Shape int

const (
	// UnaryInUnaryOut takes a deferred single input and yields a deferred single output.
	UnaryInUnaryOut Shape = iota
	// UnaryInStreamOut takes a deferred input and yields a lazy sequence.
	UnaryInStreamOut
	// StreamInUnaryOut takes a lazy sequence and yields a deferred single output (reduction).
	StreamInUnaryOut
	// StreamInStreamOut takes a lazy sequence and yields a lazy sequence.
	StreamInStreamOut
	// SideEffect is Unary->Unary where input domain type equals output domain
	// type and the return value is the unchanged input.
	SideEffect
)

// String returns the canonical name of the shape, as used in telemetry and logs.
func (s Shape) String() string {
	switch s {
	case UnaryInUnaryOut:
		return "UNARY_IN_UNARY_OUT"
	case UnaryInStreamOut:
		return "UNARY_IN_STREAM_OUT"
	case StreamInUnaryOut:
		return "STREAM_IN_UNARY_OUT"
	case StreamInStreamOut:
		return "STREAM_IN_STREAM_OUT"
	case SideEffect:
		return "SIDE_EFFECT"
	default:
		return "UNKNOWN"
	}
}

// InputIsStream reports whether the step's declared input is a lazy sequence
// rather than a single deferred value.
func (s Shape) InputIsStream() bool {
	return s == StreamInUnaryOut || s == StreamInStreamOut
}

// OutputIsStream reports whether the step's declared output is a lazy sequence
// rather than a single deferred value.
func (s Shape) OutputIsStream() bool {
	return s == UnaryInStreamOut || s == StreamInStreamOut
}

// IsAutoParallelCandidate reports whether this shape is an AUTO-policy
// parallelism candidate. Per the parallelism resolution law, unary-in,
// stream-out shapes are candidates for automatic fan-out; a plain
// unary-to-unary step is not, since there is nothing to fan out over.
func (s Shape) IsAutoParallelCandidate() bool {
	return s == UnaryInStreamOut
}
