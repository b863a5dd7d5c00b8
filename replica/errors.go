package replica

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/vrcore/e"
)

// NotPrimaryError is returned for requests sent to a backup. Clients should
// redirect to Primary.
type NotPrimaryError struct {
	View    uint64
	Primary string
}

func (err *NotPrimaryError) Error() string {
	return fmt.Sprintf("not primary for view %d (primary is %s)", err.View, err.Primary)
}

// OpNumberMismatchError is returned for stale or out-of-order request numbers.
type OpNumberMismatchError struct {
	Expected uint64
	Actual   uint64
}

func (err *OpNumberMismatchError) Error() string {
	return fmt.Sprintf("operation number mismatch: expected %d, got %d", err.Expected, err.Actual)
}

// InvalidViewNumberError is returned by view validation; ProcessRequest never
// returns it.
type InvalidViewNumberError struct {
	Expected uint64
	Actual   uint64
}

func (err *InvalidViewNumberError) Error() string {
	return fmt.Sprintf("invalid view number: expected %d, got %d", err.Expected, err.Actual)
}

// NotNormalError is returned by a primary that is not in Normal status.
type NotNormalError struct {
	Status Status
}

func (err *NotNormalError) Error() string {
	return fmt.Sprintf("replica is %s, not normal", err.Status)
}

var (
	ErrEmptyClientID   = errors.New("empty client id")
	ErrCommitBeyondOp  = errors.New("commit number beyond op number")
	ErrEmptyConfig     = errors.New("empty configuration")
	ErrMalformedState  = errors.New("malformed replica state")
	ErrReplicaNotFound = errors.New("replica number out of range")
)

// ErrorCode maps an error returned by this package to its wire code.
func ErrorCode(err error) e.Error {
	if err == nil {
		return e.None
	}
	var notPrimary *NotPrimaryError
	var mismatch *OpNumberMismatchError
	var badView *InvalidViewNumberError
	var notNormal *NotNormalError
	switch {
	case errors.As(err, &notPrimary):
		return e.NotPrimary
	case errors.As(err, &mismatch):
		return e.OpNumberMismatch
	case errors.As(err, &badView):
		return e.InvalidViewNumber
	case errors.As(err, &notNormal):
		return e.NotNormal
	}
	return e.Malformed
}
