package e

import (
	"github.com/tchajed/marshal"
)

type Error = uint64

const (
	None              = uint64(0)
	NotPrimary        = uint64(1)
	OpNumberMismatch  = uint64(2)
	InvalidViewNumber = uint64(3)
	NotNormal         = uint64(4)
	Timeout           = uint64(5)
	Disconnect        = uint64(6)
	Malformed         = uint64(7)
)

func EncodeError(err Error) []byte {
	return marshal.WriteInt(make([]byte, 0, 8), err)
}

func DecodeError(enc []byte) Error {
	if len(enc) < 8 {
		return Malformed
	}
	err, _ := marshal.ReadInt(enc)
	return err
}

func String(err Error) string {
	switch err {
	case None:
		return "none"
	case NotPrimary:
		return "not_primary"
	case OpNumberMismatch:
		return "op_number_mismatch"
	case InvalidViewNumber:
		return "invalid_view_number"
	case NotNormal:
		return "not_normal"
	case Timeout:
		return "timeout"
	case Disconnect:
		return "disconnect"
	case Malformed:
		return "malformed"
	}
	return "unknown"
}
