package kv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mit-pdos/vrcore/clerk"
)

type Clerk struct {
	cl *clerk.Clerk
}

func MakeClerk(addresses []string) *Clerk {
	return &Clerk{cl: clerk.Make(addresses)}
}

// ErrRejected is returned when the store refuses a SET; see the package doc
// for the allowed keys and values.
var ErrRejected = errors.New("kv: set rejected")

func (ck *Clerk) Set(key, value string) error {
	ret, err := ck.cl.Apply([]byte(OP_SET + " " + key + " " + value))
	if err != nil {
		return err
	}
	if string(ret) != "OK" {
		return fmt.Errorf("%w: %s", ErrRejected, ret)
	}
	return nil
}

func (ck *Clerk) Get(key string) (string, error) {
	ret, err := ck.cl.Apply([]byte(OP_GET + " " + key))
	return string(ret), err
}

func (ck *Clerk) Del(key string) (bool, error) {
	ret, err := ck.cl.Apply([]byte(OP_DEL + " " + key))
	return string(ret) == "1", err
}

// Scan returns the pairs with from <= key < to, in key order.
func (ck *Clerk) Scan(from, to string) ([][2]string, error) {
	ret, err := ck.cl.Apply([]byte(OP_SCAN + " " + from + " " + to))
	if err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return nil, nil
	}
	var pairs [][2]string
	for _, line := range strings.Split(string(ret), "\n") {
		k, v, _ := strings.Cut(line, "=")
		pairs = append(pairs, [2]string{k, v})
	}
	return pairs, nil
}

func (ck *Clerk) Close() {
	ck.cl.Close()
}
