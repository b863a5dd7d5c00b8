// Package safemarshal wraps the tchajed/marshal readers with length checks,
// so that decoding bytes from the network reports an error instead of
// panicking on a short buffer.
package safemarshal

import (
	"errors"

	"github.com/tchajed/marshal"
)

var ErrShort = errors.New("safemarshal: buffer too short")

func ReadInt(enc []byte) (uint64, []byte, error) {
	if len(enc) < 8 {
		return 0, enc, ErrShort
	}
	v, rest := marshal.ReadInt(enc)
	return v, rest, nil
}

// ReadBytes reads a length-prefixed byte slice and returns a copy of it.
func ReadBytes(enc []byte) ([]byte, []byte, error) {
	n, rest, err := ReadInt(enc)
	if err != nil {
		return nil, enc, err
	}
	if uint64(len(rest)) < n {
		return nil, enc, ErrShort
	}
	b, rest := marshal.ReadBytesCopy(rest, n)
	if b == nil {
		b = []byte{}
	}
	return b, rest, nil
}

func WriteBytes(enc []byte, b []byte) []byte {
	enc = marshal.WriteInt(enc, uint64(len(b)))
	return marshal.WriteBytes(enc, b)
}

func ReadString(enc []byte) (string, []byte, error) {
	b, rest, err := ReadBytes(enc)
	if err != nil {
		return "", enc, err
	}
	return string(b), rest, nil
}

func WriteString(enc []byte, s string) []byte {
	return WriteBytes(enc, []byte(s))
}

// WriteOptBytes distinguishes a nil slice from an empty one.
func WriteOptBytes(enc []byte, b []byte) []byte {
	if b == nil {
		return marshal.WriteInt(enc, 0)
	}
	enc = marshal.WriteInt(enc, 1)
	return WriteBytes(enc, b)
}

func ReadOptBytes(enc []byte) ([]byte, []byte, error) {
	present, rest, err := ReadInt(enc)
	if err != nil {
		return nil, enc, err
	}
	if present == 0 {
		return nil, rest, nil
	}
	b, rest, err := ReadBytes(rest)
	if err != nil {
		return nil, enc, err
	}
	return b, rest, nil
}
