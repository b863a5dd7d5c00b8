package replica

type Op = []byte

// StateMachine executes admitted operations. The replica calls Apply exactly
// once per admitted request, under its lock, in op-number order. The returned
// slice is copied, so Apply may reuse it on the next call.
type StateMachine interface {
	Apply(op Op) []byte
}

type ApplyFunc func(op Op) []byte

func (f ApplyFunc) Apply(op Op) []byte {
	return f(op)
}

var executedMarker = []byte("EXECUTED")

// Placeholder returns a state machine that does not interpret op and always
// replies with the same success marker.
func Placeholder() StateMachine {
	return ApplyFunc(func(op Op) []byte {
		ret := make([]byte, len(executedMarker))
		copy(ret, executedMarker)
		return ret
	})
}
