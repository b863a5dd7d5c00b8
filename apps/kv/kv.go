// Package kv is an ordered key-value store that runs as a replica's state
// machine. Operations are text commands:
//
//	SET <key> <value>   -> OK
//	GET <key>           -> value, or empty
//	DEL <key>           -> 1 if the key existed, else 0
//	SCAN <from> <to>    -> key=value lines for from <= key < to
//
// Keys may not contain '=' or newlines and values may not contain newlines,
// so SCAN output splits unambiguously; SET rejects them with "ERR bad key" or
// "ERR bad value". Anything else returns "ERR unknown op".
package kv

import (
	"strings"

	"github.com/mit-pdos/vrcore/replica"
	"github.com/petar/GoLLRB/llrb"
)

const (
	OP_SET  = "SET"
	OP_GET  = "GET"
	OP_DEL  = "DEL"
	OP_SCAN = "SCAN"
)

var (
	errUnknownOp = []byte("ERR unknown op")
	errBadKey    = []byte("ERR bad key")
	errBadValue  = []byte("ERR bad value")
)

type kvItem struct {
	key   string
	value string
}

func (it kvItem) Less(than llrb.Item) bool {
	return it.key < than.(kvItem).key
}

// KVState is not safe for concurrent use; the replica serializes Apply.
type KVState struct {
	kvs *llrb.LLRB
}

func MakeKVState() *KVState {
	return &KVState{kvs: llrb.New()}
}

func (s *KVState) set(key, value string) []byte {
	if strings.ContainsAny(key, "=\n") {
		return append([]byte(nil), errBadKey...)
	}
	if strings.Contains(value, "\n") {
		return append([]byte(nil), errBadValue...)
	}
	s.kvs.ReplaceOrInsert(kvItem{key: key, value: value})
	return []byte("OK")
}

func (s *KVState) get(key string) []byte {
	it := s.kvs.Get(kvItem{key: key})
	if it == nil {
		return make([]byte, 0)
	}
	return []byte(it.(kvItem).value)
}

func (s *KVState) del(key string) []byte {
	if s.kvs.Delete(kvItem{key: key}) == nil {
		return []byte("0")
	}
	return []byte("1")
}

func (s *KVState) scan(from, to string) []byte {
	var lines []string
	s.kvs.AscendRange(kvItem{key: from}, kvItem{key: to}, func(i llrb.Item) bool {
		it := i.(kvItem)
		lines = append(lines, it.key+"="+it.value)
		return true
	})
	return []byte(strings.Join(lines, "\n"))
}

func (s *KVState) Apply(op replica.Op) []byte {
	fields := strings.SplitN(string(op), " ", 3)
	switch {
	case fields[0] == OP_SET && len(fields) == 3:
		return s.set(fields[1], fields[2])
	case fields[0] == OP_GET && len(fields) == 2:
		return s.get(fields[1])
	case fields[0] == OP_DEL && len(fields) == 2:
		return s.del(fields[1])
	case fields[0] == OP_SCAN && len(fields) == 3 && !strings.Contains(fields[2], " "):
		return s.scan(fields[1], fields[2])
	}
	return append([]byte(nil), errUnknownOp...)
}

func (s *KVState) Len() int {
	return s.kvs.Len()
}

func (s *KVState) StateMachine() replica.StateMachine {
	return s
}
