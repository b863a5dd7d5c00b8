package clerk

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/mit-pdos/vrcore/replica"
	"github.com/mit-pdos/vrcore/server"
)

// freeAddrs reserves n loopback ports and releases them for the caller.
func freeAddrs(t *testing.T, n int) []string {
	t.Helper()
	addrs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addrs = append(addrs, l.Addr().String())
		l.Close()
	}
	return addrs
}

func startGroup(t *testing.T, n int) ([]string, []*replica.Replica) {
	t.Helper()
	conf := freeAddrs(t, n)
	rs := make([]*replica.Replica, 0, n)
	for me := range conf {
		r, err := replica.MakeReplica(conf, uint64(me), nil)
		if err != nil {
			t.Fatal(err)
		}
		s := server.MakeServer(r)
		if _, err := s.Serve(conf[me]); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(s.Close)
		rs = append(rs, r)
	}
	return conf, rs
}

func TestApplyFollowsRedirect(t *testing.T) {
	conf, rs := startGroup(t, 3)

	// start at a backup
	ck := Make([]string{conf[2], conf[1], conf[0]})
	defer ck.Close()
	for i := 0; i < 3; i++ {
		ret, err := ck.Apply([]byte("op"))
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		if string(ret) != "EXECUTED" {
			t.Errorf("apply %d: %q", i, ret)
		}
	}

	if rs[0].OpNumber() != 3 {
		t.Errorf("primary op number %d, want 3", rs[0].OpNumber())
	}
	for _, r := range rs[1:] {
		if r.OpNumber() != 0 {
			t.Errorf("backup %d admitted requests", r.ReplicaNumber())
		}
	}
	rec, ok := rs[0].ClientEntry(ck.ClientID())
	if !ok || rec.LastRequestNumber != 3 {
		t.Errorf("client entry %+v %v", rec, ok)
	}
}

func TestApplySkipsDeadReplica(t *testing.T) {
	conf, rs := startGroup(t, 1)
	dead := freeAddrs(t, 1)[0]

	ck := Make([]string{dead, conf[0]})
	defer ck.Close()
	if _, err := ck.Apply([]byte("op")); err != nil {
		t.Fatal(err)
	}
	if rs[0].OpNumber() != 1 {
		t.Errorf("op number %d, want 1", rs[0].OpNumber())
	}
}

func TestApplyGivesUp(t *testing.T) {
	ck := Make(freeAddrs(t, 2))
	defer ck.Close()
	ck.MaxAttempts = 4
	ck.Timeout = 50 * time.Millisecond
	if _, err := ck.Apply([]byte("op")); !errors.Is(err, ErrGaveUp) {
		t.Errorf("got %v, want ErrGaveUp", err)
	}
	if ck.RequestNumber() != 1 {
		t.Errorf("request number %d, want 1", ck.RequestNumber())
	}
}

func TestApplyNoAddresses(t *testing.T) {
	ck := Make(nil)
	if _, err := ck.Apply([]byte("op")); !errors.Is(err, replica.ErrEmptyConfig) {
		t.Errorf("got %v", err)
	}
}

func TestClientIDsDiffer(t *testing.T) {
	a, b := Make([]string{"x:1"}), Make([]string{"x:1"})
	if a.ClientID() == b.ClientID() {
		t.Errorf("two clerks share id %s", a.ClientID())
	}
}
