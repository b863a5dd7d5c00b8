package urpc

import (
	"errors"
	"testing"
	"time"

	"github.com/mit-pdos/vrcore/e"
)

const (
	rpcEcho  = uint64(0)
	rpcEmpty = uint64(1)
	rpcSlow  = uint64(2)
)

func startEchoServer(t *testing.T) (*Server, string) {
	t.Helper()
	handlers := make(map[uint64]func([]byte, *[]byte))
	handlers[rpcEcho] = func(args []byte, reply *[]byte) {
		*reply = append([]byte("echo:"), args...)
	}
	handlers[rpcEmpty] = func(args []byte, reply *[]byte) {}
	handlers[rpcSlow] = func(args []byte, reply *[]byte) {
		time.Sleep(500 * time.Millisecond)
	}
	srv := MakeServer(handlers)
	addr, err := srv.Serve("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv, addr.String()
}

func TestCall(t *testing.T) {
	_, addr := startEchoServer(t)
	cl, err := MakeClient(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer cl.Close()

	for _, msg := range []string{"a", "bb", ""} {
		reply := new([]byte)
		if err := cl.Call(rpcEcho, []byte(msg), reply, time.Second); err != nil {
			t.Fatalf("Call(%q): %v", msg, err)
		}
		if string(*reply) != "echo:"+msg {
			t.Errorf("Call(%q) = %q", msg, *reply)
		}
	}

	reply := new([]byte)
	if err := cl.Call(rpcEmpty, nil, reply, time.Second); err != nil {
		t.Fatalf("empty reply: %v", err)
	}
	if len(*reply) != 0 {
		t.Errorf("expected empty reply, got %q", *reply)
	}
}

func TestUnknownRPCRepliesMalformed(t *testing.T) {
	_, addr := startEchoServer(t)
	cl, err := MakeClient(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer cl.Close()

	reply := new([]byte)
	start := time.Now()
	if err := cl.Call(99, nil, reply, 5*time.Second); err != nil {
		t.Fatalf("got %v, want a reply", err)
	}
	if code := e.DecodeError(*reply); code != e.Malformed {
		t.Errorf("got %s, want malformed", e.String(code))
	}
	if time.Since(start) > time.Second {
		t.Errorf("unknown rpc took %v to answer", time.Since(start))
	}
}

func TestSlowHandlerTimesOut(t *testing.T) {
	_, addr := startEchoServer(t)
	cl, err := MakeClient(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer cl.Close()

	if err := cl.Call(rpcSlow, nil, new([]byte), 50*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v, want ErrTimeout", err)
	}
}

func TestCallAfterCloseDisconnects(t *testing.T) {
	_, addr := startEchoServer(t)
	cl, err := MakeClient(addr)
	if err != nil {
		t.Fatal(err)
	}
	cl.Close()

	err = cl.Call(rpcEcho, []byte("x"), new([]byte), time.Second)
	if !errors.Is(err, ErrDisconnect) {
		t.Errorf("got %v, want ErrDisconnect", err)
	}
}

func TestMakeClientFailsWithoutServer(t *testing.T) {
	srv, addr := startEchoServer(t)
	srv.Close()
	if _, err := MakeClient(addr); err == nil {
		t.Errorf("connected to a closed listener")
	}
}
