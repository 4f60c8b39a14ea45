package core

// Result is returned by every call that crosses the process boundary. It
// never carries a panic or an unhandled error: failures are values with a
// short machine-readable reason.
type Result[T any] struct {
	Value  T
	Reason string
	Err    error
	ok     bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, ok: true}
}

// Fail builds a failed result. Value is left at its zero value.
func Fail[T any](reason string, err error) Result[T] {
	return Result[T]{Reason: reason, Err: err}
}

// IsOK reports whether the call succeeded.
func (r Result[T]) IsOK() bool {
	return r.ok
}

// ValueOr returns the value on success and fallback otherwise.
func (r Result[T]) ValueOr(fallback T) T {
	if r.ok {
		return r.Value
	}
	return fallback
}

// ProcessResult is the outcome of a bounded subprocess run.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// ExitTimeout is the exit code reported for a subprocess killed on timeout.
const ExitTimeout = 124

// Succeeded reports a zero exit code.
func (p ProcessResult) Succeeded() bool {
	return p.ExitCode == 0 && !p.TimedOut
}
