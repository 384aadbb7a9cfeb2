package dqc

import "fmt"

// ErrorKind classifies failures raised while compiling a partitioned circuit
type ErrorKind string

const (
	// KindResourceExhausted means a communication pool had no free slot when a link had to open
	KindResourceExhausted ErrorKind = "resource_exhausted"
	// KindCapacityQueued means a relocation target had no free data slot and the qubit was parked
	KindCapacityQueued ErrorKind = "capacity_queued"
	// KindInvariantViolation means the bookkeeping was missing an entry it must contain
	KindInvariantViolation ErrorKind = "invariant_violation"
	// KindInvalidInput means the problem description is malformed
	KindInvalidInput ErrorKind = "invalid_input"
)

// NoContext marks an unknown layer, qubit or partition in an ExtractionError
const NoContext = -1

// ExtractionError is the error type returned by the extraction core.
// Layer, Qubit and Partition are NoContext when not applicable.
type ExtractionError struct {
	Kind      ErrorKind
	Op        string
	Layer     int
	Qubit     int
	Partition int
	Message   string
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Layer != NoContext {
		msg += fmt.Sprintf(" (layer=%d)", e.Layer)
	}
	if e.Qubit != NoContext {
		msg += fmt.Sprintf(" (qubit=%d)", e.Qubit)
	}
	if e.Partition != NoContext {
		msg += fmt.Sprintf(" (partition=%d)", e.Partition)
	}
	return msg
}

// Is matches any ExtractionError of the same kind, so the sentinels below work with errors.Is
func (e *ExtractionError) Is(target error) bool {
	t, ok := target.(*ExtractionError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, op string, qubit, partition int, format string, args ...interface{}) *ExtractionError {
	return &ExtractionError{
		Kind:      kind,
		Op:        op,
		Layer:     NoContext,
		Qubit:     qubit,
		Partition: partition,
		Message:   fmt.Sprintf(format, args...),
	}
}

// ResourceExhausted builds a fatal pool exhaustion error
func ResourceExhausted(op string, partition int, format string, args ...interface{}) *ExtractionError {
	return newError(KindResourceExhausted, op, NoContext, partition, format, args...)
}

// InvariantViolation builds an internal-defect error
func InvariantViolation(op string, qubit, partition int, format string, args ...interface{}) *ExtractionError {
	return newError(KindInvariantViolation, op, qubit, partition, format, args...)
}

// InvalidInput builds an input validation error
func InvalidInput(op string, format string, args ...interface{}) *ExtractionError {
	return newError(KindInvalidInput, op, NoContext, NoContext, format, args...)
}

var (
	ErrResourceExhausted  = &ExtractionError{Kind: KindResourceExhausted}
	ErrCapacityQueued     = &ExtractionError{Kind: KindCapacityQueued}
	ErrInvariantViolation = &ExtractionError{Kind: KindInvariantViolation}
	ErrInvalidInput       = &ExtractionError{Kind: KindInvalidInput}
)

// JobError reports job-level failures of the compile service
type JobError struct {
	Message string
}

func (e *JobError) Error() string {
	return e.Message
}

var (
	ErrJobNotFound           = &JobError{"job not found"}
	ErrJobNotCompleted       = &JobError{"job has not completed"}
	ErrExecutorNotConfigured = &JobError{"no executor configured"}
)
