package godb

import "fmt"

// ErrCode classifies the failures this package can return. Names mirror
// spec error kinds; a handful of finer-grained codes (PageFullError,
// TupleNotFoundError, MalformedDataError, IncompatibleTypesError,
// BufferPoolFullError) are returned as-is, not converted to DbError.
type ErrCode int

const (
	// TransactionAbortedError is returned by BufferPool.GetPage when lock
	// acquisition has been retried past the deadlock-avoidance timeout.
	TransactionAbortedError ErrCode = iota
	// DbError is the generic database-layer failure: cache full of dirty
	// pages on eviction, schema mismatches, structural violations.
	DbError
	// IoError is an underlying file read/write failure.
	IoError
	// NoSuchElementError is iterator exhaustion or next() in an invalid state.
	NoSuchElementError
	// InvalidArgumentError flags bad constructor arguments, e.g. a
	// StringAggregator built with an op other than COUNT.
	InvalidArgumentError

	// Finer-grained codes raised by HeapPage/HeapFile/BufferPool; callers
	// of BufferPool and HeapFile see them unchanged.
	PageFullError
	TupleNotFoundError
	MalformedDataError
	IncompatibleTypesError
	BufferPoolFullError
)

func (c ErrCode) String() string {
	switch c {
	case TransactionAbortedError:
		return "TransactionAborted"
	case DbError:
		return "DbError"
	case IoError:
		return "IoError"
	case NoSuchElementError:
		return "NoSuchElement"
	case InvalidArgumentError:
		return "InvalidArgument"
	case PageFullError:
		return "PageFull"
	case TupleNotFoundError:
		return "TupleNotFound"
	case MalformedDataError:
		return "MalformedData"
	case IncompatibleTypesError:
		return "IncompatibleTypes"
	case BufferPoolFullError:
		return "BufferPoolFull"
	}
	return "Unknown"
}

// GoDBError is the single error type this package returns. Callers that
// care about the failure kind should use errors.As and inspect Code.
type GoDBError struct {
	Code ErrCode
	Msg  string
}

func (e GoDBError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// defaultPageSize is the process-wide page size used unless overridden by
// SetPageSize. Changing it while a BufferPool is live is undefined.
const defaultPageSize = 4096

var pageSize = defaultPageSize

// GetPageSize returns the process-wide page size in bytes.
func GetPageSize() int {
	return pageSize
}

// SetPageSize overrides the process-wide page size. Test-only: behavior is
// undefined if pages are already cached anywhere in the process.
func SetPageSize(size int) {
	pageSize = size
}

// ResetPageSize restores the default page size.
func ResetPageSize() {
	pageSize = defaultPageSize
}

// StringLength is the fixed on-disk width, in bytes, of a string field.
const StringLength = 32
